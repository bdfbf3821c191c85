// Package validation holds the pre-install check results that gate which
// dependencies of a package may be installed.
package validation

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
)

// Element tags.
const (
	ResultTag  = "PSXValidationResult"
	ResultsTag = "PSXValidationResults"
	MessageTag = "Message"
)

// Result is the outcome of validating one dependency. An error result blocks
// installation unless it allows skipping and has been marked skipped.
type Result struct {
	dep       *dependency.Dependency
	isError   bool
	message   string
	allowSkip bool
	skip      bool
}

// NewResult returns an unskipped result for dep.
func NewResult(dep *dependency.Dependency, isError bool, message string, allowSkip bool) (*Result, error) {
	if dep == nil {
		return nil, contract.Required("dependency")
	}
	if err := contract.CheckText("message", message); err != nil {
		return nil, err
	}
	return &Result{dep: dep, isError: isError, message: message, allowSkip: allowSkip}, nil
}

func (r *Result) Dependency() *dependency.Dependency { return r.dep }
func (r *Result) Key() dependency.Key                { return r.dep.Key() }
func (r *Result) IsError() bool                      { return r.isError }
func (r *Result) Message() string                    { return r.message }
func (r *Result) AllowSkip() bool                    { return r.allowSkip }
func (r *Result) Skip() bool                         { return r.skip }

// Blocking reports whether this result prevents installing its dependency.
func (r *Result) Blocking() bool { return r.isError && !r.skip }

// WithSkip returns a copy of r with the skip decision applied. Skipping a
// result that does not allow it is a contract violation.
func (r *Result) WithSkip(skip bool) (*Result, error) {
	if skip && !r.allowSkip {
		return nil, contract.Invalid("skip", "is not allowed for "+r.dep.Key().String())
	}
	c := *r
	c.skip = skip
	return &c, nil
}

func (r *Result) Equal(o *Result) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.dep.Equal(o.dep) && r.isError == o.isError && r.message == o.message &&
		r.allowSkip == o.allowSkip && r.skip == o.skip
}

func (r *Result) ToXML() *etree.Element {
	el := etree.NewElement(ResultTag)
	contract.SetBool(el, "isError", r.isError)
	contract.SetBool(el, "allowSkip", r.allowSkip)
	contract.SetBool(el, "skip", r.skip)
	el.AddChild(r.dep.ToXML())
	el.AddChild(contract.TextElement(MessageTag, r.message))
	return el
}

// DecodeResult reads a PSXValidationResult element.
func DecodeResult(el *etree.Element) (*Result, error) {
	if err := contract.CheckTag(el, ResultTag); err != nil {
		return nil, err
	}
	isError, err := contract.BoolAttr(el, "isError")
	if err != nil {
		return nil, err
	}
	allowSkip, err := contract.BoolAttr(el, "allowSkip")
	if err != nil {
		return nil, err
	}
	skip, err := contract.BoolAttr(el, "skip")
	if err != nil {
		return nil, err
	}
	if skip && !allowSkip {
		return nil, &contract.InvalidAttributeError{Name: "skip", Value: "true"}
	}
	children := contract.ChildrenOf(el)
	depEl, err := children.Next(dependency.DependencyTag)
	if err != nil {
		return nil, err
	}
	dep, err := dependency.Decode(depEl)
	if err != nil {
		return nil, err
	}
	msgEl, err := children.Next(MessageTag)
	if err != nil {
		return nil, err
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	return &Result{dep: dep, isError: isError, message: msgEl.Text(), allowSkip: allowSkip, skip: skip}, nil
}

// Results is the ordered set of validation outcomes for one package.
//
// Add does not deduplicate by dependency key. When several results share a
// key, GetResult returns the one added last, so a re-validation can simply be
// appended after the original outcome.
type Results struct {
	results []*Result
}

// NewResults returns an empty set.
func NewResults() *Results { return &Results{} }

// Add appends r.
func (rs *Results) Add(r *Result) error {
	if r == nil {
		return contract.Required("result")
	}
	rs.results = append(rs.results, r)
	return nil
}

func (rs *Results) Len() int { return len(rs.results) }

// All returns the results in insertion order.
func (rs *Results) All() []*Result {
	out := make([]*Result, len(rs.results))
	copy(out, rs.results)
	return out
}

// GetResult returns the last result whose key matches dep's key, or nil.
func (rs *Results) GetResult(dep *dependency.Dependency) *Result {
	if dep == nil {
		return nil
	}
	return rs.ByKey(dep.Key())
}

// ByKey is GetResult for a bare key.
func (rs *Results) ByKey(k dependency.Key) *Result {
	var found *Result
	for _, r := range rs.results {
		if r.Key() == k {
			found = r
		}
	}
	return found
}

// HasErrors reports whether any result is an error, skipped or not.
func (rs *Results) HasErrors() bool {
	for _, r := range rs.results {
		if r.IsError() {
			return true
		}
	}
	return false
}

// Blocking returns the visible result for each key when that result blocks
// installation, in first-seen key order.
func (rs *Results) Blocking() []*Result {
	var out []*Result
	seen := make(map[dependency.Key]bool)
	for _, r := range rs.results {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		if visible := rs.ByKey(k); visible.Blocking() {
			out = append(out, visible)
		}
	}
	return out
}

// Allows reports whether dep may be installed: it has no result, or its
// visible result does not block.
func (rs *Results) Allows(dep *dependency.Dependency) bool {
	r := rs.GetResult(dep)
	return r == nil || !r.Blocking()
}

func (rs *Results) Clone() *Results {
	if rs == nil {
		return nil
	}
	return &Results{results: rs.All()}
}

func (rs *Results) Equal(o *Results) bool {
	if rs == nil || o == nil {
		return rs == o
	}
	if len(rs.results) != len(o.results) {
		return false
	}
	for i := range rs.results {
		if !rs.results[i].Equal(o.results[i]) {
			return false
		}
	}
	return true
}

func (rs *Results) ToXML() *etree.Element {
	el := etree.NewElement(ResultsTag)
	for _, r := range rs.results {
		el.AddChild(r.ToXML())
	}
	return el
}

// DecodeResults reads a PSXValidationResults element.
func DecodeResults(el *etree.Element) (*Results, error) {
	if err := contract.CheckTag(el, ResultsTag); err != nil {
		return nil, err
	}
	results, err := contract.DecodeAll(contract.ChildrenOf(el).Rest(), DecodeResult)
	if err != nil {
		return nil, err
	}
	return &Results{results: results}, nil
}
