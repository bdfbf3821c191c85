package archive

import (
	"time"

	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags.
const (
	InfoTag    = "PSXArchiveInfo"
	SummaryTag = "PSXArchiveSummary"
)

// NoID marks a summary that has not been stored yet.
const NoID = -1

// InfoParams are the constructor arguments for Info.
type InfoParams struct {
	ArchiveRef    string `arg:"archiveRef" validate:"required,xmltext"`
	SourceServer  string `arg:"sourceServer" validate:"required,xmltext"`
	ServerVersion string `arg:"serverVersion" validate:"xmltext"`
	UserName      string `arg:"userName" validate:"required,xmltext"`
	Created       time.Time
}

// Info identifies the archive and where it was built. Created is kept in UTC
// at second precision, which is what the element form can carry.
type Info struct {
	archiveRef    string
	sourceServer  string
	serverVersion string
	userName      string
	created       time.Time
}

// NewInfo validates p and returns an Info. Created must be set.
func NewInfo(p InfoParams) (*Info, error) {
	if err := contract.ValidateStruct(p); err != nil {
		return nil, err
	}
	if p.Created.IsZero() {
		return nil, contract.Invalid("createDate", "must be set")
	}
	return &Info{
		archiveRef:    p.ArchiveRef,
		sourceServer:  p.SourceServer,
		serverVersion: p.ServerVersion,
		userName:      p.UserName,
		created:       p.Created.UTC().Truncate(time.Second),
	}, nil
}

func (i *Info) ArchiveRef() string    { return i.archiveRef }
func (i *Info) SourceServer() string  { return i.sourceServer }
func (i *Info) ServerVersion() string { return i.serverVersion }
func (i *Info) UserName() string      { return i.userName }
func (i *Info) Created() time.Time    { return i.created }

func (i *Info) Equal(o *Info) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.archiveRef == o.archiveRef && i.sourceServer == o.sourceServer &&
		i.serverVersion == o.serverVersion && i.userName == o.userName && i.created.Equal(o.created)
}

func (i *Info) ToXML() *etree.Element {
	el := etree.NewElement(InfoTag)
	el.CreateAttr("archiveRef", i.archiveRef)
	el.CreateAttr("sourceServer", i.sourceServer)
	el.CreateAttr("serverVersion", i.serverVersion)
	el.CreateAttr("userName", i.userName)
	el.CreateAttr("createDate", i.created.Format(time.RFC3339))
	return el
}

// DecodeInfo reads a PSXArchiveInfo element.
func DecodeInfo(el *etree.Element) (*Info, error) {
	if err := contract.CheckTag(el, InfoTag); err != nil {
		return nil, err
	}
	var p InfoParams
	var err error
	if p.ArchiveRef, err = contract.Attr(el, "archiveRef"); err != nil {
		return nil, err
	}
	if p.SourceServer, err = contract.Attr(el, "sourceServer"); err != nil {
		return nil, err
	}
	p.ServerVersion = contract.OptionalAttr(el, "serverVersion", "")
	if p.UserName, err = contract.Attr(el, "userName"); err != nil {
		return nil, err
	}
	created, err := contract.Attr(el, "createDate")
	if err != nil {
		return nil, err
	}
	if p.Created, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, &contract.InvalidAttributeError{Name: "createDate", Value: created}
	}
	info, err := NewInfo(p)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return info, nil
}

// Summary lists the packages of one archive together with its Info. It is
// a value: WithPackage and WithID return new summaries.
type Summary struct {
	id       int
	info     *Info
	packages []*Package
}

// NewSummary returns an unstored summary. Package names must be unique.
func NewSummary(info *Info, packages ...*Package) (*Summary, error) {
	if info == nil {
		return nil, contract.Required("archiveInfo")
	}
	for _, p := range packages {
		if p == nil {
			return nil, contract.Required("package")
		}
	}
	if name, ok := duplicateName(packages); ok {
		return nil, contract.Invalid("package", "is listed twice: "+name)
	}
	return &Summary{id: NoID, info: info, packages: append([]*Package(nil), packages...)}, nil
}

func (s *Summary) ID() int     { return s.id }
func (s *Summary) Info() *Info { return s.info }

func (s *Summary) Packages() []*Package {
	return append([]*Package(nil), s.packages...)
}

// Package returns the package called name, or nil.
func (s *Summary) Package(name string) *Package {
	for _, p := range s.packages {
		if p.name == name {
			return p
		}
	}
	return nil
}

// WithPackage returns a summary in which p replaces the package of the same
// name, or is appended if there is none.
func (s *Summary) WithPackage(p *Package) *Summary {
	out := &Summary{id: s.id, info: s.info, packages: s.Packages()}
	for i, cur := range out.packages {
		if cur.name == p.name {
			out.packages[i] = p
			return out
		}
	}
	out.packages = append(out.packages, p)
	return out
}

// WithID returns a copy of s carrying a store-assigned id.
func (s *Summary) WithID(id int) *Summary {
	return &Summary{id: id, info: s.info, packages: s.Packages()}
}

func (s *Summary) Equal(o *Summary) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.id != o.id || !s.info.Equal(o.info) || len(s.packages) != len(o.packages) {
		return false
	}
	for i := range s.packages {
		if !s.packages[i].Equal(o.packages[i]) {
			return false
		}
	}
	return true
}

func (s *Summary) ToXML() *etree.Element {
	el := etree.NewElement(SummaryTag)
	contract.SetInt(el, "id", s.id)
	el.AddChild(s.info.ToXML())
	for _, p := range s.packages {
		el.AddChild(p.ToXML())
	}
	return el
}

// DecodeSummary reads a PSXArchiveSummary element.
func DecodeSummary(el *etree.Element) (*Summary, error) {
	if err := contract.CheckTag(el, SummaryTag); err != nil {
		return nil, err
	}
	id, err := contract.IntAttr(el, "id")
	if err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)
	infoEl, err := children.Next(InfoTag)
	if err != nil {
		return nil, err
	}
	info, err := DecodeInfo(infoEl)
	if err != nil {
		return nil, err
	}
	packages, err := contract.DecodeAll(children.Rest(), DecodePackage)
	if err != nil {
		return nil, err
	}
	if name, ok := duplicateName(packages); ok {
		return nil, &contract.InvalidAttributeError{Name: "name", Value: name}
	}
	s, err := NewSummary(info, packages...)
	if err != nil {
		return nil, err
	}
	s.id = id
	return s, nil
}

// duplicateName returns the first package name that appears twice.
func duplicateName(packages []*Package) (string, bool) {
	seen := make(map[string]bool, len(packages))
	for _, p := range packages {
		if seen[p.name] {
			return p.name, true
		}
		seen[p.name] = true
	}
	return "", false
}
