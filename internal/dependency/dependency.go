// Package dependency describes deployable units of content: their identity,
// capability flags, the dependency tree between them, and the opaque data an
// archive carries for each.
package dependency

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags.
const (
	DependencyTag        = "PSXDependency"
	DeployableElementTag = "PSXDeployableElement"
	DescriptionTag       = "Description"
)

// Type classifies how a dependency relates to the package that pulls it in.
type Type int

const (
	TypeLocal  Type = 1 // owned by one package
	TypeShared Type = 2 // may be owned by several packages
	TypeServer Type = 3 // server configuration
	TypeSystem Type = 4 // shipped with the server, never installed
)

var typeNames = map[Type]string{
	TypeLocal:  "Local",
	TypeShared: "Shared",
	TypeServer: "Server",
	TypeSystem: "System",
}

func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Key identifies a dependency across every table that refers to it.
type Key struct {
	ObjectType   string `json:"objectType"`
	DependencyID string `json:"dependencyId"`
}

func (k Key) String() string { return k.ObjectType + ":" + k.DependencyID }

// Capabilities are the optional behaviours an object type supports.
type Capabilities struct {
	SupportsIDTypes          bool
	SupportsIDMapping        bool
	SupportsUserDependencies bool
	SupportsParentID         bool
}

// Params are the constructor arguments for a Dependency.
type Params struct {
	Type           Type   `arg:"dependencyType" validate:"oneof=1 2 3 4"`
	ID             string `arg:"dependencyId" validate:"required,xmltext"`
	ObjectType     string `arg:"objectType" validate:"required,xmltext"`
	ObjectTypeName string `arg:"objectTypeName" validate:"required,xmltext"`
	DisplayName    string `arg:"displayName" validate:"required,xmltext"`
	Capabilities
}

// Dependency is the identity and capability descriptor of one deployable
// unit. Values are immutable once constructed.
type Dependency struct {
	depType        Type
	id             string
	objectType     string
	objectTypeName string
	displayName    string
	caps           Capabilities
}

// New validates p and returns a Dependency.
func New(p Params) (*Dependency, error) {
	if err := contract.ValidateStruct(p); err != nil {
		return nil, err
	}
	return &Dependency{
		depType:        p.Type,
		id:             p.ID,
		objectType:     p.ObjectType,
		objectTypeName: p.ObjectTypeName,
		displayName:    p.DisplayName,
		caps:           p.Capabilities,
	}, nil
}

func (d *Dependency) Type() Type                 { return d.depType }
func (d *Dependency) ID() string                 { return d.id }
func (d *Dependency) ObjectType() string         { return d.objectType }
func (d *Dependency) ObjectTypeName() string     { return d.objectTypeName }
func (d *Dependency) DisplayName() string        { return d.displayName }
func (d *Dependency) Capabilities() Capabilities { return d.caps }
func (d *Dependency) Key() Key                   { return Key{ObjectType: d.objectType, DependencyID: d.id} }

func (d *Dependency) SupportsIDTypes() bool          { return d.caps.SupportsIDTypes }
func (d *Dependency) SupportsIDMapping() bool        { return d.caps.SupportsIDMapping }
func (d *Dependency) SupportsUserDependencies() bool { return d.caps.SupportsUserDependencies }
func (d *Dependency) SupportsParentID() bool         { return d.caps.SupportsParentID }

// Params returns the arguments that would rebuild d.
func (d *Dependency) Params() Params {
	return Params{
		Type:           d.depType,
		ID:             d.id,
		ObjectType:     d.objectType,
		ObjectTypeName: d.objectTypeName,
		DisplayName:    d.displayName,
		Capabilities:   d.caps,
	}
}

// Equal compares every field, not just the key.
func (d *Dependency) Equal(o *Dependency) bool {
	if d == nil || o == nil {
		return d == o
	}
	return *d == *o
}

// Hash is consistent with Equal.
func (d *Dependency) Hash() uint64 {
	return contract.Hash(
		strconv.Itoa(int(d.depType)), d.id, d.objectType, d.objectTypeName, d.displayName,
		contract.HashBool(d.caps.SupportsIDTypes),
		contract.HashBool(d.caps.SupportsIDMapping),
		contract.HashBool(d.caps.SupportsUserDependencies),
		contract.HashBool(d.caps.SupportsParentID),
	)
}

func (d *Dependency) String() string {
	return d.displayName + " (" + d.Key().String() + ")"
}

func (d *Dependency) ToXML() *etree.Element {
	el := etree.NewElement(DependencyTag)
	contract.SetInt(el, "dependencyType", int(d.depType))
	el.CreateAttr("dependencyId", d.id)
	el.CreateAttr("objectType", d.objectType)
	el.CreateAttr("objectTypeName", d.objectTypeName)
	el.CreateAttr("displayName", d.displayName)
	contract.SetBool(el, "supportsIdTypes", d.caps.SupportsIDTypes)
	contract.SetBool(el, "supportsIdMapping", d.caps.SupportsIDMapping)
	contract.SetBool(el, "supportsUserDependencies", d.caps.SupportsUserDependencies)
	contract.SetBool(el, "supportsParentId", d.caps.SupportsParentID)
	return el
}

// Decode reads a PSXDependency element.
func Decode(el *etree.Element) (*Dependency, error) {
	if err := contract.CheckTag(el, DependencyTag); err != nil {
		return nil, err
	}
	var p Params
	code, err := contract.IntAttr(el, "dependencyType")
	if err != nil {
		return nil, err
	}
	p.Type = Type(code)
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"dependencyId", &p.ID},
		{"objectType", &p.ObjectType},
		{"objectTypeName", &p.ObjectTypeName},
		{"displayName", &p.DisplayName},
	} {
		if *f.dst, err = contract.Attr(el, f.name); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		name string
		dst  *bool
	}{
		{"supportsIdTypes", &p.SupportsIDTypes},
		{"supportsIdMapping", &p.SupportsIDMapping},
		{"supportsUserDependencies", &p.SupportsUserDependencies},
		{"supportsParentId", &p.SupportsParentID},
	} {
		if *f.dst, err = contract.BoolAttr(el, f.name); err != nil {
			return nil, err
		}
	}
	d, err := New(p)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return d, nil
}

// DeployableElement is a Dependency that can be installed on its own, with a
// human-readable description.
type DeployableElement struct {
	Dependency
	description string
}

// NewDeployableElement wraps a copy of dep.
func NewDeployableElement(dep *Dependency, description string) (*DeployableElement, error) {
	if dep == nil {
		return nil, contract.Required("dependency")
	}
	if err := contract.CheckText("description", description); err != nil {
		return nil, err
	}
	return &DeployableElement{Dependency: *dep, description: description}, nil
}

func (e *DeployableElement) Description() string { return e.description }

// AsDependency returns the embedded dependency as a standalone value.
func (e *DeployableElement) AsDependency() *Dependency {
	d := e.Dependency
	return &d
}

// Equal compares the inherited dependency fields and the description.
func (e *DeployableElement) Equal(o *DeployableElement) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Dependency == o.Dependency && e.description == o.description
}

// Hash is the dependency hash plus the hash of the description.
func (e *DeployableElement) Hash() uint64 {
	return e.Dependency.Hash() + contract.Hash(e.description)
}

func (e *DeployableElement) ToXML() *etree.Element {
	el := etree.NewElement(DeployableElementTag)
	el.AddChild(e.Dependency.ToXML())
	el.AddChild(contract.TextElement(DescriptionTag, e.description))
	return el
}

// DecodeDeployableElement reads a PSXDeployableElement element. Both the
// nested dependency and the description element are required; the
// description text may be empty.
func DecodeDeployableElement(el *etree.Element) (*DeployableElement, error) {
	if err := contract.CheckTag(el, DeployableElementTag); err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)
	depEl, err := children.Next(DependencyTag)
	if err != nil {
		return nil, err
	}
	dep, err := Decode(depEl)
	if err != nil {
		return nil, err
	}
	descEl, err := children.Next(DescriptionTag)
	if err != nil {
		return nil, err
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	return &DeployableElement{Dependency: *dep, description: descEl.Text()}, nil
}
