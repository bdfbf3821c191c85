// Package ledger is the permanent record of install attempts: the ordered
// operations each attempt performed, the validation and mapping context it
// ran with, and the resulting package outcome.
package ledger

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags.
const (
	TransactionTag    = "PSXTransactionSummary"
	TransactionLogTag = "PSXTransactionLogSummary"
)

// Action is what an elementary install operation did to its target.
type Action int

const (
	ActionCreated  Action = 0
	ActionReplaced Action = 1
	ActionSkipped  Action = 2
	ActionDeleted  Action = 3
	ActionFailed   Action = 4
)

var actionNames = [...]string{"Created", "Replaced", "Skipped", "Deleted", "Failed"}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "Action(" + strconv.Itoa(int(a)) + ")"
}

// Transaction types.
const (
	TypeSchema = "Schema"
	TypeData   = "Data"
	TypeFile   = "File"
	TypeOther  = "Other"
)

// TransactionParams are the constructor arguments for a TransactionSummary.
type TransactionParams struct {
	LogID   int    `arg:"logId" validate:"min=-1"`
	DepDesc string `arg:"depDesc" validate:"required,xmltext"`
	Element string `arg:"element" validate:"required,xmltext"`
	Action  Action `arg:"action" validate:"oneof=0 1 2 3 4"`
	Type    string `arg:"type" validate:"oneof=Schema Data File Other"`
}

// TransactionSummary records one elementary operation of an install.
type TransactionSummary struct {
	logID   int
	depDesc string
	element string
	action  Action
	typ     string
}

// NewTransactionSummary validates p and returns a TransactionSummary.
func NewTransactionSummary(p TransactionParams) (*TransactionSummary, error) {
	if err := contract.ValidateStruct(p); err != nil {
		return nil, err
	}
	return &TransactionSummary{logID: p.LogID, depDesc: p.DepDesc, element: p.Element, action: p.Action, typ: p.Type}, nil
}

func (t *TransactionSummary) LogID() int      { return t.logID }
func (t *TransactionSummary) DepDesc() string { return t.depDesc }
func (t *TransactionSummary) Element() string { return t.element }
func (t *TransactionSummary) Action() Action  { return t.action }
func (t *TransactionSummary) Type() string    { return t.typ }

func (t *TransactionSummary) Equal(o *TransactionSummary) bool {
	if t == nil || o == nil {
		return t == o
	}
	return *t == *o
}

func (t *TransactionSummary) ToXML() *etree.Element {
	el := etree.NewElement(TransactionTag)
	contract.SetInt(el, "logId", t.logID)
	el.CreateAttr("depDesc", t.depDesc)
	el.CreateAttr("element", t.element)
	contract.SetInt(el, "action", int(t.action))
	el.CreateAttr("type", t.typ)
	return el
}

// DecodeTransaction reads a PSXTransactionSummary element.
func DecodeTransaction(el *etree.Element) (*TransactionSummary, error) {
	if err := contract.CheckTag(el, TransactionTag); err != nil {
		return nil, err
	}
	var p TransactionParams
	var err error
	if p.LogID, err = contract.IntAttr(el, "logId"); err != nil {
		return nil, err
	}
	if p.DepDesc, err = contract.Attr(el, "depDesc"); err != nil {
		return nil, err
	}
	if p.Element, err = contract.Attr(el, "element"); err != nil {
		return nil, err
	}
	action, err := contract.IntAttr(el, "action")
	if err != nil {
		return nil, err
	}
	p.Action = Action(action)
	if p.Type, err = contract.Attr(el, "type"); err != nil {
		return nil, err
	}
	t, err := NewTransactionSummary(p)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return t, nil
}

// TransactionLog is the append-only, ordered list of operations performed by
// one install attempt. There is no way to remove or reorder entries.
type TransactionLog struct {
	entries []*TransactionSummary
}

// NewTransactionLog returns an empty log.
func NewTransactionLog() *TransactionLog { return &TransactionLog{} }

// Add appends t.
func (l *TransactionLog) Add(t *TransactionSummary) error {
	if t == nil {
		return contract.Required("transaction")
	}
	l.entries = append(l.entries, t)
	return nil
}

func (l *TransactionLog) Len() int { return len(l.entries) }

// Transactions returns the entries in install order.
func (l *TransactionLog) Transactions() []*TransactionSummary {
	return append([]*TransactionSummary(nil), l.entries...)
}

// Failed reports whether any operation failed, i.e. the attempt ended in a
// partial-failure state.
func (l *TransactionLog) Failed() bool {
	for _, t := range l.entries {
		if t.action == ActionFailed {
			return true
		}
	}
	return false
}

// Count returns how many entries recorded action a.
func (l *TransactionLog) Count(a Action) int {
	n := 0
	for _, t := range l.entries {
		if t.action == a {
			n++
		}
	}
	return n
}

func (l *TransactionLog) Clone() *TransactionLog {
	if l == nil {
		return nil
	}
	return &TransactionLog{entries: l.Transactions()}
}

func (l *TransactionLog) Equal(o *TransactionLog) bool {
	if l == nil || o == nil {
		return l == o
	}
	if len(l.entries) != len(o.entries) {
		return false
	}
	for i := range l.entries {
		if !l.entries[i].Equal(o.entries[i]) {
			return false
		}
	}
	return true
}

func (l *TransactionLog) ToXML() *etree.Element {
	el := etree.NewElement(TransactionLogTag)
	for _, t := range l.entries {
		el.AddChild(t.ToXML())
	}
	return el
}

// DecodeTransactionLog reads a PSXTransactionLogSummary element, keeping
// document order.
func DecodeTransactionLog(el *etree.Element) (*TransactionLog, error) {
	if err := contract.CheckTag(el, TransactionLogTag); err != nil {
		return nil, err
	}
	entries, err := contract.DecodeAll(contract.ChildrenOf(el).Rest(), DecodeTransaction)
	if err != nil {
		return nil, err
	}
	return &TransactionLog{entries: entries}, nil
}
