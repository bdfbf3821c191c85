package dependency

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags for dependency data.
const (
	DataTag       = "PSXDependencyData"
	SchemaWrapTag = "Schema"
	DataWrapTag   = "Data"
)

// Data carries the schema and table-data fragments an archive stores for one
// dependency. The fragments are opaque: they are copied in and out untouched
// and never interpreted here.
type Data struct {
	key    Key
	schema *etree.Element
	data   *etree.Element
}

// NewData copies the given fragments. Either may be nil.
func NewData(key Key, schema, data *etree.Element) (*Data, error) {
	if key.ObjectType == "" {
		return nil, contract.Invalid("objectType", "must not be empty")
	}
	if key.DependencyID == "" {
		return nil, contract.Invalid("dependencyId", "must not be empty")
	}
	if err := contract.CheckText("objectType", key.ObjectType); err != nil {
		return nil, err
	}
	if err := contract.CheckText("dependencyId", key.DependencyID); err != nil {
		return nil, err
	}
	return &Data{key: key, schema: copyElement(schema), data: copyElement(data)}, nil
}

func copyElement(el *etree.Element) *etree.Element {
	if el == nil {
		return nil
	}
	return el.Copy()
}

func (d *Data) Key() Key { return d.key }

// Schema returns a copy of the schema fragment, or nil.
func (d *Data) Schema() *etree.Element { return copyElement(d.schema) }

// TableData returns a copy of the data fragment, or nil.
func (d *Data) TableData() *etree.Element { return copyElement(d.data) }

// Equal compares the key and the serialized fragments.
func (d *Data) Equal(o *Data) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.key == o.key && contract.SameXML(d.schema, o.schema) && contract.SameXML(d.data, o.data)
}

func (d *Data) ToXML() *etree.Element {
	el := etree.NewElement(DataTag)
	el.CreateAttr("objectType", d.key.ObjectType)
	el.CreateAttr("dependencyId", d.key.DependencyID)
	if d.schema != nil {
		el.CreateElement(SchemaWrapTag).AddChild(d.schema.Copy())
	}
	if d.data != nil {
		el.CreateElement(DataWrapTag).AddChild(d.data.Copy())
	}
	return el
}

// DecodeData reads a PSXDependencyData element. A wrapper that is present
// must hold exactly one fragment.
func DecodeData(el *etree.Element) (*Data, error) {
	if err := contract.CheckTag(el, DataTag); err != nil {
		return nil, err
	}
	var k Key
	var err error
	if k.ObjectType, err = contract.Attr(el, "objectType"); err != nil {
		return nil, err
	}
	if k.DependencyID, err = contract.Attr(el, "dependencyId"); err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)
	schema, err := unwrap(children.Optional(SchemaWrapTag))
	if err != nil {
		return nil, err
	}
	data, err := unwrap(children.Optional(DataWrapTag))
	if err != nil {
		return nil, err
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	d, err := NewData(k, schema, data)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return d, nil
}

func unwrap(wrapper *etree.Element) (*etree.Element, error) {
	if wrapper == nil {
		return nil, nil
	}
	inner := wrapper.ChildElements()
	if len(inner) != 1 {
		return nil, &contract.MissingElementError{Name: wrapper.Tag + " fragment"}
	}
	return inner[0], nil
}
