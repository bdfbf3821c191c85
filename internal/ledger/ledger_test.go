package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rflorenc/deploy-ledger/internal/archive"
	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/dependency"
	"github.com/rflorenc/deploy-ledger/internal/idmap"
	"github.com/rflorenc/deploy-ledger/internal/validation"
)

func tx(t *testing.T, element string, action Action) *TransactionSummary {
	t.Helper()
	s, err := NewTransactionSummary(TransactionParams{
		LogID:   archive.NoLog,
		DepDesc: "Schema: RXSITES",
		Element: element,
		Action:  action,
		Type:    TypeSchema,
	})
	if err != nil {
		t.Fatalf("NewTransactionSummary: %v", err)
	}
	return s
}

type fixture struct {
	element *dependency.DeployableElement
	archive *archive.Summary
	results *validation.Results
	dbms    *dbms.Map
	ids     *idmap.Map
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dep, err := dependency.New(dependency.Params{
		Type:           dependency.TypeShared,
		ID:             "301",
		ObjectType:     "Application",
		ObjectTypeName: "Application",
		DisplayName:    "pkg1",
	})
	if err != nil {
		t.Fatal(err)
	}
	el, _ := dependency.NewDeployableElement(dep, "support application")
	info, _ := archive.NewInfo(archive.InfoParams{
		ArchiveRef:   "support",
		SourceServer: "srv1",
		UserName:     "admin",
		Created:      time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	})
	listed, _ := archive.NewPackage("pkg1", "Content", archive.StatusInProgress, archive.NoLog)
	summary, _ := archive.NewSummary(info, listed)

	results := validation.NewResults()
	r, _ := validation.NewResult(dep, false, "", false)
	results.Add(r)

	dm, _ := dbms.NewMap("srv1")
	dm.AddMapping(dbms.MustMapping("rxdefault", "myTarget"))

	ids, _ := idmap.NewMap("srv1")
	m, _ := idmap.NewMapping(idmap.MappingParams{SourceID: "301", ObjectType: "Application", TargetID: "512"})
	ids.AddMapping(m)

	return fixture{element: el, archive: summary, results: results, dbms: dm, ids: ids}
}

func TestTransactionLog_OrderAndFailure(t *testing.T) {
	l := NewTransactionLog()
	if err := l.Add(nil); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("Add(nil) error = %v", err)
	}
	names := []string{"RXSITES", "RXVARIANTS", "RXSLOTS"}
	for _, n := range names {
		l.Add(tx(t, n, ActionCreated))
	}
	if l.Failed() {
		t.Error("Failed() = true with no failed entries")
	}
	l.Add(tx(t, "RXBROKEN", ActionFailed))
	if !l.Failed() || l.Count(ActionCreated) != 3 {
		t.Errorf("Failed()=%v Count(Created)=%d", l.Failed(), l.Count(ActionCreated))
	}

	data, _ := contract.Marshal(l)
	got, err := contract.Unmarshal(data, DecodeTransactionLog)
	if err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	if !got.Equal(l) {
		t.Fatal("round trip mismatch")
	}
	for i, entry := range got.Transactions()[:3] {
		if entry.Element() != names[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Element(), names[i])
		}
	}
}

func TestNewTransactionSummary_Validation(t *testing.T) {
	tests := []struct {
		name  string
		p     TransactionParams
		field string
	}{
		{"bad action", TransactionParams{LogID: 1, DepDesc: "d", Element: "e", Action: 9, Type: TypeData}, "action"},
		{"bad type", TransactionParams{LogID: 1, DepDesc: "d", Element: "e", Type: "Blob"}, "type"},
		{"empty element", TransactionParams{LogID: 1, DepDesc: "d", Type: TypeData}, "element"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTransactionSummary(tc.p)
			var ia *contract.InvalidArgumentError
			if !errors.As(err, &ia) || ia.Field != tc.field {
				t.Errorf("error = %v, want InvalidArgumentError(%s)", err, tc.field)
			}
		})
	}
}

func TestLogDetail_RoundTrip(t *testing.T) {
	f := newFixture(t)
	l := NewTransactionLog()
	l.Add(tx(t, "RXSITES", ActionReplaced))

	withIDs, err := NewLogDetail(f.results, f.ids, f.dbms, l)
	if err != nil {
		t.Fatal(err)
	}
	withoutIDs, _ := NewLogDetail(f.results, nil, f.dbms, l)

	for name, d := range map[string]*LogDetail{"with id map": withIDs, "without id map": withoutIDs} {
		t.Run(name, func(t *testing.T) {
			data, _ := contract.Marshal(d)
			got, err := contract.Unmarshal(data, DecodeLogDetail)
			if err != nil {
				t.Fatalf("Unmarshal(%s): %v", data, err)
			}
			if !got.Equal(d) {
				t.Errorf("round trip mismatch: %s", data)
			}
		})
	}
	if withoutIDs.IDMap() != nil {
		t.Error("IDMap() should be nil when none was given")
	}
}

func TestLogDetail_OwnsItsChildren(t *testing.T) {
	f := newFixture(t)
	l := NewTransactionLog()
	d, _ := NewLogDetail(f.results, f.ids, f.dbms, l)

	l.Add(tx(t, "late", ActionCreated))
	f.dbms.AddMapping(dbms.MustMapping("late", "x"))
	d.TransactionLog().Add(tx(t, "also late", ActionCreated))

	if d.TransactionLog().Len() != 0 {
		t.Error("LogDetail transaction log changed after construction")
	}
	if d.DbmsMap().Len() != 1 {
		t.Error("LogDetail dbms map changed after construction")
	}
}

func TestNewLogDetail_Required(t *testing.T) {
	f := newFixture(t)
	l := NewTransactionLog()
	tests := []struct {
		name    string
		results *validation.Results
		dm      *dbms.Map
		log     *TransactionLog
	}{
		{"results", nil, f.dbms, l},
		{"dbms map", f.results, nil, l},
		{"transaction log", f.results, f.dbms, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLogDetail(tc.results, nil, tc.dm, tc.log); !errors.Is(err, contract.ErrInvalidArgument) {
				t.Errorf("error = %v, want invalid argument", err)
			}
		})
	}
}

func TestDecodeLogDetail_FixedOrder(t *testing.T) {
	f := newFixture(t)
	d, _ := NewLogDetail(f.results, nil, f.dbms, NewTransactionLog())
	data, _ := contract.Marshal(d)
	s := string(data)

	// Drop the transaction log: the decoder must not skip ahead to the results.
	start := strings.Index(s, "<"+TransactionLogTag)
	end := start + len("<"+TransactionLogTag+"/>")
	broken := s[:start] + s[end:]

	_, err := contract.Unmarshal([]byte(broken), DecodeLogDetail)
	var me *contract.MissingElementError
	if !errors.As(err, &me) || me.Name != TransactionLogTag {
		t.Errorf("error = %v for %s, want MissingElementError(%s)", err, broken, TransactionLogTag)
	}
}

func TestLogSummary_RoundTrip(t *testing.T) {
	f := newFixture(t)
	d, _ := NewLogDetail(f.results, f.ids, f.dbms, NewTransactionLog())

	withDetail, err := NewLogSummary(f.element, f.archive, d, true)
	if err != nil {
		t.Fatal(err)
	}
	bare, _ := NewLogSummary(f.element, f.archive, nil, false)
	stored, err := withDetail.WithID(42)
	if err != nil {
		t.Fatal(err)
	}

	for name, s := range map[string]*LogSummary{"detail": withDetail, "bare": bare, "stored": stored} {
		t.Run(name, func(t *testing.T) {
			data, _ := contract.Marshal(s)
			got, err := contract.Unmarshal(data, DecodeLogSummary)
			if err != nil {
				t.Fatalf("Unmarshal(%s): %v", data, err)
			}
			if !got.Equal(s) {
				t.Errorf("round trip mismatch: %s", data)
			}
		})
	}

	if withDetail.ID() != NoID || withDetail.IsPersisted() {
		t.Error("WithID modified the receiver")
	}
	if got := stored.ArchivePackage().LogID(); got != 42 {
		t.Errorf("stored package LogID() = %d, want 42", got)
	}
	if got := withDetail.ArchivePackage().LogID(); got != archive.NoLog {
		t.Errorf("original package LogID() = %d, want %d", got, archive.NoLog)
	}
	if _, err := withDetail.WithID(0); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("WithID(0) error = %v", err)
	}
	if purged := stored.WithArchiveExists(false); purged.ArchiveExists() || !stored.ArchiveExists() {
		t.Error("WithArchiveExists must return a modified copy")
	}
}

func TestDecodeLogSummary_Malformed(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		kind error
	}{
		{"missing id", `<PSXLogSummary archiveExist="true"/>`, contract.ErrMissingElement},
		{"bad id", `<PSXLogSummary id="one" archiveExist="true"/>`, contract.ErrInvalidAttribute},
		{"bad flag", `<PSXLogSummary id="1" archiveExist="Yes"/>`, contract.ErrInvalidAttribute},
		{"missing element", `<PSXLogSummary id="1" archiveExist="true"/>`, contract.ErrMissingElement},
		{"wrong tag", `<PSXLogDetail/>`, contract.ErrWrongElementType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := contract.Unmarshal([]byte(tc.xml), DecodeLogSummary)
			if !errors.Is(err, tc.kind) {
				t.Errorf("error = %v, want %v", err, tc.kind)
			}
		})
	}
}

func TestDecode_RejectsUnexpectedChildren(t *testing.T) {
	f := newFixture(t)
	d, _ := NewLogDetail(f.results, f.ids, f.dbms, NewTransactionLog())
	summary, _ := NewLogSummary(f.element, f.archive, d, true)
	summaryXML, _ := contract.Marshal(summary)
	detailXML, _ := contract.Marshal(d)

	tests := []struct {
		name   string
		xml    string
		dec    func([]byte) error
		actual string
	}{
		{
			"misspelled detail",
			strings.ReplaceAll(string(summaryXML), LogDetailTag, "PSXLogDetial"),
			func(b []byte) error { _, err := contract.Unmarshal(b, DecodeLogSummary); return err },
			"PSXLogDetial",
		},
		{
			"misspelled id map",
			strings.ReplaceAll(string(detailXML), idmap.MapTag, "PSXIDMap"),
			func(b []byte) error { _, err := contract.Unmarshal(b, DecodeLogDetail); return err },
			"PSXIDMap",
		},
		{
			"trailing child after id map",
			strings.Replace(string(detailXML), "</"+LogDetailTag+">", "<Extra/></"+LogDetailTag+">", 1),
			func(b []byte) error { _, err := contract.Unmarshal(b, DecodeLogDetail); return err },
			"Extra",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.dec([]byte(tc.xml))
			var we *contract.WrongElementTypeError
			if !errors.As(err, &we) || we.Actual != tc.actual {
				t.Errorf("error = %v, want WrongElementTypeError naming %s", err, tc.actual)
			}
		})
	}
}

func TestAttempt_Finish(t *testing.T) {
	f := newFixture(t)
	a, err := Begin(f.element, f.archive)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID() == "" {
		t.Error("ID() is empty")
	}
	if a.Package().Status() != archive.StatusInProgress || a.Package().Type() != "Content" {
		t.Errorf("Package() = %v, want IN_PROGRESS Content package", a.Package())
	}
	a.Record(tx(t, "RXSITES", ActionCreated))
	a.Record(tx(t, "RXVARIANTS", ActionSkipped))

	s, err := a.Finish(f.results, f.dbms, f.ids)
	if err != nil {
		t.Fatal(err)
	}
	if !s.ArchivePackage().IsInstalled() {
		t.Errorf("package status = %v, want Completed", s.ArchivePackage().Status())
	}
	if a.Package().Status() != archive.StatusInProgress {
		t.Error("the attempt's starting package value changed")
	}
	if s.Detail().TransactionLog().Len() != 2 {
		t.Errorf("recorded %d transactions, want 2", s.Detail().TransactionLog().Len())
	}
	if !a.Sealed() {
		t.Error("Sealed() = false after Finish")
	}
	if err := a.Record(tx(t, "late", ActionCreated)); !errors.Is(err, ErrSealed) {
		t.Errorf("Record after Finish error = %v, want ErrSealed", err)
	}
	if _, err := a.Abort(f.results, f.dbms, nil); !errors.Is(err, ErrSealed) {
		t.Errorf("Abort after Finish error = %v, want ErrSealed", err)
	}
}

func TestAttempt_PartialFailureAborts(t *testing.T) {
	f := newFixture(t)
	a, _ := Begin(f.element, f.archive)
	a.Record(tx(t, "RXSITES", ActionCreated))
	a.Record(tx(t, "RXBROKEN", ActionFailed))

	s, err := a.Finish(f.results, f.dbms, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.ArchivePackage().IsFailed() {
		t.Errorf("package status = %v, want Aborted", s.ArchivePackage().Status())
	}
}

func TestAttempt_AbortAndSealFailure(t *testing.T) {
	f := newFixture(t)
	a, _ := Begin(f.element, f.archive)

	// A failed seal leaves the attempt open.
	if _, err := a.Abort(nil, f.dbms, nil); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Fatalf("Abort(nil results) error = %v", err)
	}
	if a.Sealed() {
		t.Fatal("attempt sealed despite failing to build its record")
	}
	s, err := a.Abort(f.results, f.dbms, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.ArchivePackage().IsFailed() || !s.ArchiveExists() {
		t.Errorf("Abort summary package=%v archiveExists=%v", s.ArchivePackage(), s.ArchiveExists())
	}
}

func TestBegin_NewPackageTakesObjectTypeName(t *testing.T) {
	f := newFixture(t)
	info := f.archive.Info()
	empty, _ := archive.NewSummary(info)
	a, err := Begin(f.element, empty)
	if err != nil {
		t.Fatal(err)
	}
	if a.Package().Type() != "Application" {
		t.Errorf("Type() = %q, want Application", a.Package().Type())
	}
	if _, err := Begin(nil, empty); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("Begin(nil) error = %v", err)
	}
}
