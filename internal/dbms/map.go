package dbms

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Map is the datasource translation table for one source server.
//
// Lookups scan in insertion order and return the first entry whose source
// matches. AddMapping does not reject duplicate sources: a later entry with
// the same source stays hidden until the earlier one is removed.
//
// A Map is not safe for concurrent mutation.
type Map struct {
	sourceServer string
	mappings     []*Mapping
}

// NewMap returns an empty map for sourceServer.
func NewMap(sourceServer string) (*Map, error) {
	if sourceServer == "" {
		return nil, contract.Invalid("sourceServer", "must not be empty")
	}
	if err := contract.CheckText("sourceServer", sourceServer); err != nil {
		return nil, err
	}
	return &Map{sourceServer: sourceServer}, nil
}

func (m *Map) SourceServer() string { return m.sourceServer }

// Len returns the number of entries, shadowed duplicates included.
func (m *Map) Len() int { return len(m.mappings) }

// Mappings returns the entries in order.
func (m *Map) Mappings() []*Mapping {
	out := make([]*Mapping, len(m.mappings))
	copy(out, m.mappings)
	return out
}

// AddMapping appends mapping without checking for an existing source.
func (m *Map) AddMapping(mapping *Mapping) error {
	if mapping == nil {
		return contract.Required("mapping")
	}
	m.mappings = append(m.mappings, mapping)
	return nil
}

// RemoveMapping removes the entry that GetMapping(mapping.SourceInfo()) would
// return, which is not necessarily mapping itself. It reports whether an
// entry was removed.
func (m *Map) RemoveMapping(mapping *Mapping) bool {
	if mapping == nil {
		return false
	}
	i := m.index(mapping.SourceInfo())
	if i < 0 {
		return false
	}
	m.mappings = append(m.mappings[:i], m.mappings[i+1:]...)
	return true
}

// GetMapping returns the first entry for sourceInfo, or nil.
func (m *Map) GetMapping(sourceInfo string) *Mapping {
	if i := m.index(sourceInfo); i >= 0 {
		return m.mappings[i]
	}
	return nil
}

// Resolve returns the target datasource for source. ok is false when no entry
// exists or when the visible entry has no target yet.
func (m *Map) Resolve(source string) (target string, ok bool) {
	mapping := m.GetMapping(source)
	if mapping == nil || mapping.TargetInfo() == "" {
		return "", false
	}
	return mapping.TargetInfo(), true
}

func (m *Map) index(sourceInfo string) int {
	for i, mapping := range m.mappings {
		if mapping.SourceInfo() == sourceInfo {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy. Mapping values are immutable and are
// shared between the copies; the list itself is not.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	return &Map{sourceServer: m.sourceServer, mappings: m.Mappings()}
}

// Equal compares the source server and the ordered entries.
func (m *Map) Equal(o *Map) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.sourceServer != o.sourceServer || len(m.mappings) != len(o.mappings) {
		return false
	}
	for i := range m.mappings {
		if !m.mappings[i].Equal(o.mappings[i]) {
			return false
		}
	}
	return true
}

func (m *Map) ToXML() *etree.Element {
	el := etree.NewElement(MapTag)
	el.CreateAttr("sourceServer", m.sourceServer)
	for _, mapping := range m.mappings {
		el.AddChild(mapping.ToXML())
	}
	return el
}

// DecodeMap reads a PSXDbmsMap element. Entries are appended in document
// order, duplicates included.
func DecodeMap(el *etree.Element) (*Map, error) {
	if err := contract.CheckTag(el, MapTag); err != nil {
		return nil, err
	}
	server, err := contract.Attr(el, "sourceServer")
	if err != nil {
		return nil, err
	}
	if server == "" {
		return nil, &contract.InvalidAttributeError{Name: "sourceServer", Value: server}
	}
	mappings, err := contract.DecodeAll(contract.ChildrenOf(el).Rest(), DecodeMapping)
	if err != nil {
		return nil, err
	}
	return &Map{sourceServer: server, mappings: mappings}, nil
}
