package ledger

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rflorenc/deploy-ledger/internal/archive"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/idmap"
	"github.com/rflorenc/deploy-ledger/internal/validation"
)

// ErrSealed is returned by an Attempt that has already produced its summary.
var ErrSealed = errors.New("install attempt already sealed")

// Attempt collects the record of one install of one package while the
// external orchestrator runs it. It is owned by a single install and must
// not be shared between goroutines.
type Attempt struct {
	id      string
	element *dependency.DeployableElement
	archive *archive.Summary
	pending *archive.Package
	log     *TransactionLog
	sealed  bool
}

// Begin starts an attempt for element from the given archive. The package
// is recorded IN_PROGRESS with no log id; its type is taken from the archive
// entry of the same name when there is one, else from the element's object
// type name.
func Begin(element *dependency.DeployableElement, summary *archive.Summary) (*Attempt, error) {
	if element == nil {
		return nil, contract.Required("deployableElement")
	}
	if summary == nil {
		return nil, contract.Required("archiveSummary")
	}
	name := PackageName(element)
	typ := element.ObjectTypeName()
	if existing := summary.Package(name); existing != nil {
		typ = existing.Type()
	}
	pending, err := archive.NewPackage(name, typ, archive.StatusInProgress, archive.NoLog)
	if err != nil {
		return nil, err
	}
	return &Attempt{
		id:      uuid.New().String(),
		element: element,
		archive: summary.WithPackage(pending),
		pending: pending,
		log:     NewTransactionLog(),
	}, nil
}

func (a *Attempt) ID() string                             { return a.id }
func (a *Attempt) Element() *dependency.DeployableElement { return a.element }

// Package returns the IN_PROGRESS package value the attempt started with.
func (a *Attempt) Package() *archive.Package { return a.pending }

// Transactions returns a snapshot of what has been recorded so far.
func (a *Attempt) Transactions() *TransactionLog { return a.log.Clone() }

// Sealed reports whether Finish or Abort has been called.
func (a *Attempt) Sealed() bool { return a.sealed }

// Record appends one operation to the attempt's transaction log.
func (a *Attempt) Record(t *TransactionSummary) error {
	if a.sealed {
		return ErrSealed
	}
	return a.log.Add(t)
}

// Finish seals the attempt. The outcome is COMPLETED unless a recorded
// operation failed, in which case it is ABORTED.
func (a *Attempt) Finish(results *validation.Results, dbmsMap *dbms.Map, ids *idmap.Map) (*LogSummary, error) {
	status := archive.StatusCompleted
	if a.log.Failed() {
		status = archive.StatusAborted
	}
	return a.seal(status, results, dbmsMap, ids)
}

// Abort seals the attempt as ABORTED regardless of what was recorded.
func (a *Attempt) Abort(results *validation.Results, dbmsMap *dbms.Map, ids *idmap.Map) (*LogSummary, error) {
	return a.seal(archive.StatusAborted, results, dbmsMap, ids)
}

func (a *Attempt) seal(status archive.Status, results *validation.Results, dbmsMap *dbms.Map, ids *idmap.Map) (*LogSummary, error) {
	if a.sealed {
		return nil, ErrSealed
	}
	detail, err := NewLogDetail(results, ids, dbmsMap, a.log)
	if err != nil {
		return nil, err
	}
	outcome, err := a.pending.WithOutcome(status, archive.NoLog)
	if err != nil {
		return nil, err
	}
	summary, err := NewLogSummary(a.element, a.archive.WithPackage(outcome), detail, true)
	if err != nil {
		return nil, err
	}
	a.sealed = true
	return summary, nil
}
