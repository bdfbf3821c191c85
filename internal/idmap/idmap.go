// Package idmap translates object identifiers from a source server to the
// identifiers the same objects received on the target server.
package idmap

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags.
const (
	MapTag     = "PSXIdMap"
	MappingTag = "PSXIdMapping"
)

// Mapping records where one source object ended up. Parent fields are only
// set for object types whose ids are scoped by a parent object.
type Mapping struct {
	sourceID       string
	sourceName     string
	objectType     string
	sourceParentID string
	parentType     string
	targetID       string
	targetName     string
	newObject      bool
}

// MappingParams are the constructor arguments for a Mapping.
type MappingParams struct {
	SourceID       string `arg:"sourceId" validate:"required,xmltext"`
	SourceName     string `arg:"sourceName" validate:"xmltext"`
	ObjectType     string `arg:"objectType" validate:"required,xmltext"`
	SourceParentID string `arg:"sourceParentId" validate:"xmltext"`
	ParentType     string `arg:"parentType" validate:"xmltext"`
	TargetID       string `arg:"targetId" validate:"xmltext"`
	TargetName     string `arg:"targetName" validate:"xmltext"`
	NewObject      bool
}

// NewMapping validates p and returns a Mapping. A parent id requires a parent
// type and the other way round.
func NewMapping(p MappingParams) (*Mapping, error) {
	if err := contract.ValidateStruct(p); err != nil {
		return nil, err
	}
	if (p.SourceParentID == "") != (p.ParentType == "") {
		return nil, contract.Invalid("parentType", "must be set together with sourceParentId")
	}
	return &Mapping{
		sourceID:       p.SourceID,
		sourceName:     p.SourceName,
		objectType:     p.ObjectType,
		sourceParentID: p.SourceParentID,
		parentType:     p.ParentType,
		targetID:       p.TargetID,
		targetName:     p.TargetName,
		newObject:      p.NewObject,
	}, nil
}

func (m *Mapping) SourceID() string       { return m.sourceID }
func (m *Mapping) SourceName() string     { return m.sourceName }
func (m *Mapping) ObjectType() string     { return m.objectType }
func (m *Mapping) SourceParentID() string { return m.sourceParentID }
func (m *Mapping) ParentType() string     { return m.parentType }
func (m *Mapping) TargetID() string       { return m.targetID }
func (m *Mapping) TargetName() string     { return m.targetName }
func (m *Mapping) IsNewObject() bool      { return m.newObject }

// IsMapped reports whether a target has been assigned.
func (m *Mapping) IsMapped() bool { return m.targetID != "" }

// WithTarget returns a copy of m pointing at the given target object.
func (m *Mapping) WithTarget(targetID, targetName string, newObject bool) (*Mapping, error) {
	if err := contract.CheckText("targetId", targetID); err != nil {
		return nil, err
	}
	if err := contract.CheckText("targetName", targetName); err != nil {
		return nil, err
	}
	c := *m
	c.targetID = targetID
	c.targetName = targetName
	c.newObject = newObject
	return &c, nil
}

func (m *Mapping) matches(sourceID, objectType, parentID, parentType string) bool {
	return m.sourceID == sourceID && m.objectType == objectType &&
		m.sourceParentID == parentID && m.parentType == parentType
}

func (m *Mapping) Equal(o *Mapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	return *m == *o
}

func (m *Mapping) ToXML() *etree.Element {
	el := etree.NewElement(MappingTag)
	el.CreateAttr("sourceId", m.sourceID)
	el.CreateAttr("sourceName", m.sourceName)
	el.CreateAttr("objectType", m.objectType)
	if m.sourceParentID != "" {
		el.CreateAttr("sourceParentId", m.sourceParentID)
		el.CreateAttr("parentType", m.parentType)
	}
	el.CreateAttr("targetId", m.targetID)
	el.CreateAttr("targetName", m.targetName)
	contract.SetBool(el, "newObject", m.newObject)
	return el
}

// DecodeMapping reads a PSXIdMapping element.
func DecodeMapping(el *etree.Element) (*Mapping, error) {
	if err := contract.CheckTag(el, MappingTag); err != nil {
		return nil, err
	}
	var p MappingParams
	var err error
	if p.SourceID, err = contract.Attr(el, "sourceId"); err != nil {
		return nil, err
	}
	if p.ObjectType, err = contract.Attr(el, "objectType"); err != nil {
		return nil, err
	}
	if p.NewObject, err = contract.BoolAttr(el, "newObject"); err != nil {
		return nil, err
	}
	p.SourceName = contract.OptionalAttr(el, "sourceName", "")
	p.SourceParentID = contract.OptionalAttr(el, "sourceParentId", "")
	p.ParentType = contract.OptionalAttr(el, "parentType", "")
	p.TargetID = contract.OptionalAttr(el, "targetId", "")
	p.TargetName = contract.OptionalAttr(el, "targetName", "")
	m, err := NewMapping(p)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return m, nil
}

// Map is the id translation table for one source server. Each
// (sourceId, objectType, parent) key appears at most once.
type Map struct {
	sourceServer string
	mappings     []*Mapping
}

// NewMap returns an empty id map for sourceServer.
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
func (m *Map) Len() int             { return len(m.mappings) }

func (m *Map) Mappings() []*Mapping {
	out := make([]*Mapping, len(m.mappings))
	copy(out, m.mappings)
	return out
}

// AddMapping stores mapping, replacing an existing entry with the same key in
// place so that document order is kept.
func (m *Map) AddMapping(mapping *Mapping) error {
	if mapping == nil {
		return contract.Required("mapping")
	}
	for i, cur := range m.mappings {
		if cur.matches(mapping.sourceID, mapping.objectType, mapping.sourceParentID, mapping.parentType) {
			m.mappings[i] = mapping
			return nil
		}
	}
	m.mappings = append(m.mappings, mapping)
	return nil
}

// GetMapping returns the entry for an object whose id is not parent-scoped.
func (m *Map) GetMapping(sourceID, objectType string) *Mapping {
	return m.GetMappingWithParent(sourceID, objectType, "", "")
}

// GetMappingWithParent returns the entry for a parent-scoped object.
func (m *Map) GetMappingWithParent(sourceID, objectType, parentID, parentType string) *Mapping {
	for _, cur := range m.mappings {
		if cur.matches(sourceID, objectType, parentID, parentType) {
			return cur
		}
	}
	return nil
}

// Unmapped returns the entries that still lack a target.
func (m *Map) Unmapped() []*Mapping {
	var out []*Mapping
	for _, cur := range m.mappings {
		if !cur.IsMapped() {
			out = append(out, cur)
		}
	}
	return out
}

func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	return &Map{sourceServer: m.sourceServer, mappings: m.Mappings()}
}

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
	for _, cur := range m.mappings {
		el.AddChild(cur.ToXML())
	}
	return el
}

// DecodeMap reads a PSXIdMap element.
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
	out := &Map{sourceServer: server}
	mappings, err := contract.DecodeAll(contract.ChildrenOf(el).Rest(), DecodeMapping)
	if err != nil {
		return nil, err
	}
	for _, mapping := range mappings {
		out.AddMapping(mapping)
	}
	return out, nil
}
