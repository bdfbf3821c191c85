package ledger

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/archive"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/idmap"
	"github.com/rflorenc/deploy-ledger/internal/validation"
)

// Element tags.
const (
	LogDetailTag  = "PSXLogDetail"
	LogSummaryTag = "PSXLogSummary"
)

// NoID marks a log summary that has not been persisted yet.
const NoID = -1

// LogDetail bundles everything recorded about one install attempt.
//
// The mutable children are copied on construction and on every accessor, so
// a LogDetail cannot be altered after it is built.
type LogDetail struct {
	results *validation.Results
	idMap   *idmap.Map
	dbmsMap *dbms.Map
	txLog   *TransactionLog
}

// NewLogDetail requires results, dbmsMap and txLog; idMap may be nil.
func NewLogDetail(results *validation.Results, idMap *idmap.Map, dbmsMap *dbms.Map, txLog *TransactionLog) (*LogDetail, error) {
	switch {
	case results == nil:
		return nil, contract.Required("validationResults")
	case dbmsMap == nil:
		return nil, contract.Required("dbmsMap")
	case txLog == nil:
		return nil, contract.Required("transactionLog")
	}
	return &LogDetail{
		results: results.Clone(),
		idMap:   idMap.Clone(),
		dbmsMap: dbmsMap.Clone(),
		txLog:   txLog.Clone(),
	}, nil
}

func (d *LogDetail) ValidationResults() *validation.Results { return d.results.Clone() }
func (d *LogDetail) IDMap() *idmap.Map                      { return d.idMap.Clone() }
func (d *LogDetail) DbmsMap() *dbms.Map                     { return d.dbmsMap.Clone() }
func (d *LogDetail) TransactionLog() *TransactionLog        { return d.txLog.Clone() }

func (d *LogDetail) Equal(o *LogDetail) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.results.Equal(o.results) && d.idMap.Equal(o.idMap) &&
		d.dbmsMap.Equal(o.dbmsMap) && d.txLog.Equal(o.txLog)
}

// ToXML writes the children in the fixed order dbms map, transaction log,
// validation results, id map.
func (d *LogDetail) ToXML() *etree.Element {
	el := etree.NewElement(LogDetailTag)
	el.AddChild(d.dbmsMap.ToXML())
	el.AddChild(d.txLog.ToXML())
	el.AddChild(d.results.ToXML())
	if d.idMap != nil {
		el.AddChild(d.idMap.ToXML())
	}
	return el
}

// DecodeLogDetail reads a PSXLogDetail element.
func DecodeLogDetail(el *etree.Element) (*LogDetail, error) {
	if err := contract.CheckTag(el, LogDetailTag); err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)

	dbmsEl, err := children.Next(dbms.MapTag)
	if err != nil {
		return nil, err
	}
	dbmsMap, err := dbms.DecodeMap(dbmsEl)
	if err != nil {
		return nil, err
	}

	txEl, err := children.Next(TransactionLogTag)
	if err != nil {
		return nil, err
	}
	txLog, err := DecodeTransactionLog(txEl)
	if err != nil {
		return nil, err
	}

	resultsEl, err := children.Next(validation.ResultsTag)
	if err != nil {
		return nil, err
	}
	results, err := validation.DecodeResults(resultsEl)
	if err != nil {
		return nil, err
	}

	var idMap *idmap.Map
	if idEl := children.Optional(idmap.MapTag); idEl != nil {
		if idMap, err = idmap.DecodeMap(idEl); err != nil {
			return nil, err
		}
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	return &LogDetail{results: results, idMap: idMap, dbmsMap: dbmsMap, txLog: txLog}, nil
}

// LogSummary is the persisted row for one install attempt. Its id is
// assigned by the log store; until then it is NoID.
type LogSummary struct {
	id            int
	pkg           *dependency.DeployableElement
	archive       *archive.Summary
	detail        *LogDetail
	archiveExists bool
}

// NewLogSummary returns an unpersisted summary. detail may be nil.
func NewLogSummary(pkg *dependency.DeployableElement, archiveSummary *archive.Summary, detail *LogDetail, archiveExists bool) (*LogSummary, error) {
	if pkg == nil {
		return nil, contract.Required("deployableElement")
	}
	if archiveSummary == nil {
		return nil, contract.Required("archiveSummary")
	}
	return &LogSummary{id: NoID, pkg: pkg, archive: archiveSummary, detail: detail, archiveExists: archiveExists}, nil
}

func (s *LogSummary) ID() int                                { return s.id }
func (s *LogSummary) Package() *dependency.DeployableElement { return s.pkg }
func (s *LogSummary) ArchiveSummary() *archive.Summary       { return s.archive }
func (s *LogSummary) Detail() *LogDetail                     { return s.detail }
func (s *LogSummary) ArchiveExists() bool                    { return s.archiveExists }
func (s *LogSummary) IsPersisted() bool                      { return s.id != NoID }

// ArchivePackage returns the archive's entry for this summary's package.
func (s *LogSummary) ArchivePackage() *archive.Package {
	return s.archive.Package(PackageName(s.pkg))
}

// WithID returns a copy of s carrying the store-assigned id. The archive
// entry for the package, if any, is replaced by a copy stamped with the same
// log id.
func (s *LogSummary) WithID(id int) (*LogSummary, error) {
	if id <= 0 {
		return nil, contract.Invalid("id", "must be greater than 0")
	}
	out := *s
	out.id = id
	if p := s.ArchivePackage(); p != nil {
		stamped, err := p.WithOutcome(p.Status(), id)
		if err != nil {
			return nil, err
		}
		out.archive = s.archive.WithPackage(stamped)
	}
	return &out, nil
}

// WithArchiveExists returns a copy of s with the archive-existence flag set,
// for when the archive file is purged after the row was written.
func (s *LogSummary) WithArchiveExists(exists bool) *LogSummary {
	out := *s
	out.archiveExists = exists
	return &out
}

func (s *LogSummary) Equal(o *LogSummary) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.id == o.id && s.archiveExists == o.archiveExists && s.pkg.Equal(o.pkg) &&
		s.archive.Equal(o.archive) && s.detail.Equal(o.detail)
}

func (s *LogSummary) ToXML() *etree.Element {
	el := etree.NewElement(LogSummaryTag)
	contract.SetInt(el, "id", s.id)
	contract.SetBool(el, "archiveExist", s.archiveExists)
	el.AddChild(s.pkg.ToXML())
	el.AddChild(s.archive.ToXML())
	if s.detail != nil {
		el.AddChild(s.detail.ToXML())
	}
	return el
}

// DecodeLogSummary reads a PSXLogSummary element.
func DecodeLogSummary(el *etree.Element) (*LogSummary, error) {
	if err := contract.CheckTag(el, LogSummaryTag); err != nil {
		return nil, err
	}
	id, err := contract.IntAttr(el, "id")
	if err != nil {
		return nil, err
	}
	exists, err := contract.BoolAttr(el, "archiveExist")
	if err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)

	pkgEl, err := children.Next(dependency.DeployableElementTag)
	if err != nil {
		return nil, err
	}
	pkg, err := dependency.DecodeDeployableElement(pkgEl)
	if err != nil {
		return nil, err
	}

	archiveEl, err := children.Next(archive.SummaryTag)
	if err != nil {
		return nil, err
	}
	summary, err := archive.DecodeSummary(archiveEl)
	if err != nil {
		return nil, err
	}

	var detail *LogDetail
	if detailEl := children.Optional(LogDetailTag); detailEl != nil {
		if detail, err = DecodeLogDetail(detailEl); err != nil {
			return nil, err
		}
	}
	if err := children.End(); err != nil {
		return nil, err
	}
	return &LogSummary{id: id, pkg: pkg, archive: summary, detail: detail, archiveExists: exists}, nil
}

// PackageName is the archive package name under which el is installed.
func PackageName(el *dependency.DeployableElement) string {
	return el.DisplayName()
}
