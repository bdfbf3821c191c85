// Package dbms resolves datasource names that differ between a source server
// and the environment a package is being installed into.
package dbms

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags.
const (
	DatasourceMapTag = "PSXDatasourceMap"
	MappingTag       = "PSXDbmsMapping"
	MapTag           = "PSXDbmsMap"
)

// DatasourceMap renames one source datasource to a target datasource. The
// zero target ("") means the target has not been chosen yet.
type DatasourceMap struct {
	source string
	target string
}

// NewDatasourceMap returns a datasource map. source must not be empty.
func NewDatasourceMap(source, target string) (*DatasourceMap, error) {
	if source == "" {
		return nil, contract.Invalid("source", "must not be empty")
	}
	if err := contract.CheckText("source", source); err != nil {
		return nil, err
	}
	if err := contract.CheckText("target", target); err != nil {
		return nil, err
	}
	return &DatasourceMap{source: source, target: target}, nil
}

func (d *DatasourceMap) Source() string { return d.source }
func (d *DatasourceMap) Target() string { return d.target }

// WithTarget returns a copy of d pointing at target.
func (d *DatasourceMap) WithTarget(target string) (*DatasourceMap, error) {
	if err := contract.CheckText("target", target); err != nil {
		return nil, err
	}
	return &DatasourceMap{source: d.source, target: target}, nil
}

// Equal compares both fields.
func (d *DatasourceMap) Equal(o *DatasourceMap) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.source == o.source && d.target == o.target
}

// ToXML always writes target, empty or not.
func (d *DatasourceMap) ToXML() *etree.Element {
	el := etree.NewElement(DatasourceMapTag)
	el.CreateAttr("source", d.source)
	el.CreateAttr("target", d.target)
	return el
}

// DecodeDatasourceMap reads a PSXDatasourceMap element.
func DecodeDatasourceMap(el *etree.Element) (*DatasourceMap, error) {
	if err := contract.CheckTag(el, DatasourceMapTag); err != nil {
		return nil, err
	}
	source, err := contract.Attr(el, "source")
	if err != nil {
		return nil, err
	}
	if source == "" {
		return nil, &contract.InvalidAttributeError{Name: "source", Value: source}
	}
	target, err := contract.Attr(el, "target")
	if err != nil {
		return nil, err
	}
	return &DatasourceMap{source: source, target: target}, nil
}

// Mapping wraps exactly one DatasourceMap. SourceInfo and TargetInfo always
// mirror the wrapped map.
type Mapping struct {
	ds *DatasourceMap
}

// NewMapping wraps ds. DatasourceMap values are immutable, so the mapping may
// hold ds directly without aliasing hazards.
func NewMapping(ds *DatasourceMap) (*Mapping, error) {
	if ds == nil {
		return nil, contract.Required("datasourceMap")
	}
	return &Mapping{ds: ds}, nil
}

// MustMapping is NewMapping for literal source/target pairs known to be valid.
func MustMapping(source, target string) *Mapping {
	ds, err := NewDatasourceMap(source, target)
	if err != nil {
		panic(err)
	}
	return &Mapping{ds: ds}
}

func (m *Mapping) DatasourceMap() *DatasourceMap { return m.ds }
func (m *Mapping) SourceInfo() string            { return m.ds.source }
func (m *Mapping) TargetInfo() string            { return m.ds.target }

// Equal compares the wrapped datasource maps.
func (m *Mapping) Equal(o *Mapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.ds.Equal(o.ds)
}

func (m *Mapping) ToXML() *etree.Element {
	el := etree.NewElement(MappingTag)
	el.AddChild(m.ds.ToXML())
	return el
}

// DecodeMapping reads a PSXDbmsMapping element.
func DecodeMapping(el *etree.Element) (*Mapping, error) {
	if err := contract.CheckTag(el, MappingTag); err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)
	child, err := children.Next(DatasourceMapTag)
	if err != nil {
		return nil, err
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	ds, err := DecodeDatasourceMap(child)
	if err != nil {
		return nil, err
	}
	return &Mapping{ds: ds}, nil
}
