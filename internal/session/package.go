// Package session holds the import context on the target side: the packages
// chosen from an archive, their pre-install validation outcome, and the
// listeners that follow changes to either.
package session

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/validation"
)

// ImportPackageTag is the element tag of an ImportPackage.
const ImportPackageTag = "PSXImportPackage"

// ImportPackage is one deployable element selected for import, together with
// its validation results once validation has run.
type ImportPackage struct {
	element *dependency.DeployableElement
	results *validation.Results
}

// NewImportPackage returns an unvalidated package for el.
func NewImportPackage(el *dependency.DeployableElement) (*ImportPackage, error) {
	if el == nil {
		return nil, contract.Required("deployableElement")
	}
	return &ImportPackage{element: el}, nil
}

func (p *ImportPackage) Element() *dependency.DeployableElement { return p.element }
func (p *ImportPackage) Key() dependency.Key                     { return p.element.Key() }

// Results returns a copy of the validation results, or nil before validation.
func (p *ImportPackage) Results() *validation.Results { return p.results.Clone() }

// Validated reports whether results have been attached.
func (p *ImportPackage) Validated() bool { return p.results != nil }

// WithResults returns a copy of p carrying a copy of results.
func (p *ImportPackage) WithResults(results *validation.Results) *ImportPackage {
	return &ImportPackage{element: p.element, results: results.Clone()}
}

// Installable reports whether the package has been validated and no
// validation error blocks it.
func (p *ImportPackage) Installable() bool {
	return p.results != nil && len(p.results.Blocking()) == 0
}

func (p *ImportPackage) Equal(o *ImportPackage) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.element.Equal(o.element) && p.results.Equal(o.results)
}

func (p *ImportPackage) ToXML() *etree.Element {
	el := etree.NewElement(ImportPackageTag)
	el.AddChild(p.element.ToXML())
	if p.results != nil {
		el.AddChild(p.results.ToXML())
	}
	return el
}

// DecodeImportPackage reads a PSXImportPackage element.
func DecodeImportPackage(el *etree.Element) (*ImportPackage, error) {
	if err := contract.CheckTag(el, ImportPackageTag); err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)
	depEl, err := children.Next(dependency.DeployableElementTag)
	if err != nil {
		return nil, err
	}
	dep, err := dependency.DecodeDeployableElement(depEl)
	if err != nil {
		return nil, err
	}
	p := &ImportPackage{element: dep}
	if resultsEl := children.Optional(validation.ResultsTag); resultsEl != nil {
		if p.results, err = validation.DecodeResults(resultsEl); err != nil {
			return nil, err
		}
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	return p, nil
}
