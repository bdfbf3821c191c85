// Package archive describes the contents of an archive produced on a source
// server and the install status of each package inside it.
package archive

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// PackageTag is the element tag of a Package.
const PackageTag = "PSXArchivePackage"

// NoLog is the log id of a package whose install has not been logged yet.
const NoLog = -1

// Status is the install outcome of a package.
type Status int

const (
	StatusCompleted  Status = 0
	StatusAborted    Status = 1
	StatusInProgress Status = 2
)

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusInProgress
}

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusAborted:
		return "Aborted"
	case StatusInProgress:
		return "InProgress"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

type packageArgs struct {
	Name   string `arg:"name" validate:"required,xmltext"`
	Type   string `arg:"type" validate:"required,xmltext"`
	Status Status `arg:"status" validate:"oneof=0 1 2"`
	LogID  int    `arg:"logId" validate:"min=-1"`
}

// Package is one installable package listed in an archive. It has no
// setters: a new outcome is a new Package, so earlier values recorded in a
// ledger keep the status they were written with.
type Package struct {
	name   string
	typ    string
	status Status
	logID  int
}

// NewPackage validates its arguments and returns a Package. status must be
// one of the three Status constants and logID is NoLog or a store-assigned id.
func NewPackage(name, typ string, status Status, logID int) (*Package, error) {
	if err := contract.ValidateStruct(packageArgs{Name: name, Type: typ, Status: status, LogID: logID}); err != nil {
		return nil, err
	}
	return &Package{name: name, typ: typ, status: status, logID: logID}, nil
}

func (p *Package) Name() string   { return p.name }
func (p *Package) Type() string   { return p.typ }
func (p *Package) Status() Status { return p.status }
func (p *Package) LogID() int     { return p.logID }
func (p *Package) HasLog() bool   { return p.logID != NoLog }

// IsInstalled reports a completed install.
func (p *Package) IsInstalled() bool { return p.status == StatusCompleted }

// IsFailed reports an aborted install.
func (p *Package) IsFailed() bool { return p.status == StatusAborted }

// WithOutcome returns a new Package with the same name and type.
func (p *Package) WithOutcome(status Status, logID int) (*Package, error) {
	return NewPackage(p.name, p.typ, status, logID)
}

func (p *Package) Equal(o *Package) bool {
	if p == nil || o == nil {
		return p == o
	}
	return *p == *o
}

func (p *Package) String() string {
	return p.name + " [" + p.typ + "] " + p.status.String()
}

func (p *Package) ToXML() *etree.Element {
	el := etree.NewElement(PackageTag)
	el.CreateAttr("name", p.name)
	el.CreateAttr("type", p.typ)
	contract.SetInt(el, "status", int(p.status))
	contract.SetInt(el, "logId", p.logID)
	return el
}

// DecodePackage reads a PSXArchivePackage element. A status outside the three
// legal codes is reported as an invalid attribute.
func DecodePackage(el *etree.Element) (*Package, error) {
	if err := contract.CheckTag(el, PackageTag); err != nil {
		return nil, err
	}
	name, err := contract.Attr(el, "name")
	if err != nil {
		return nil, err
	}
	typ, err := contract.Attr(el, "type")
	if err != nil {
		return nil, err
	}
	status, err := contract.IntAttr(el, "status")
	if err != nil {
		return nil, err
	}
	logID, err := contract.IntAttr(el, "logId")
	if err != nil {
		return nil, err
	}
	p, err := NewPackage(name, typ, Status(status), logID)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return p, nil
}
