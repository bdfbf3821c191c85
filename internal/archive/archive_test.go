package archive

import (
	"errors"
	"testing"
	"time"

	"github.com/rflorenc/deploy-ledger/internal/contract"
)

func TestNewPackage_Status(t *testing.T) {
	for code := -3; code <= 5; code++ {
		_, err := NewPackage("pkg1", "Content", Status(code), NoLog)
		legal := code >= 0 && code <= 2
		if legal && err != nil {
			t.Errorf("NewPackage(status=%d) error = %v, want nil", code, err)
		}
		if !legal && !errors.Is(err, contract.ErrInvalidArgument) {
			t.Errorf("NewPackage(status=%d) error = %v, want invalid argument", code, err)
		}
	}
}

func TestNewPackage_Arguments(t *testing.T) {
	tests := []struct {
		name  string
		pname string
		typ   string
		logID int
		field string
	}{
		{"empty name", "", "Content", NoLog, "name"},
		{"empty type", "pkg1", "", NoLog, "type"},
		{"log id below sentinel", "pkg1", "Content", -2, "logId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPackage(tc.pname, tc.typ, StatusCompleted, tc.logID)
			var ia *contract.InvalidArgumentError
			if p != nil || !errors.As(err, &ia) || ia.Field != tc.field {
				t.Errorf("NewPackage = (%v, %v), want InvalidArgumentError(%s)", p, err, tc.field)
			}
		})
	}
}

func TestPackage_OutcomeIsANewValue(t *testing.T) {
	first, err := NewPackage("pkg1", "Content", StatusInProgress, NoLog)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewPackage("pkg1", "Content", StatusCompleted, 42)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status() != StatusInProgress || first.HasLog() {
		t.Errorf("first package changed: %v", first)
	}
	if !second.IsInstalled() || second.IsFailed() {
		t.Errorf("second package IsInstalled/IsFailed = %v/%v", second.IsInstalled(), second.IsFailed())
	}

	aborted, _ := first.WithOutcome(StatusAborted, 7)
	if first.Status() != StatusInProgress {
		t.Error("WithOutcome modified the receiver")
	}
	if !aborted.IsFailed() || aborted.LogID() != 7 || aborted.Name() != "pkg1" {
		t.Errorf("WithOutcome = %v", aborted)
	}
	if _, err := first.WithOutcome(Status(3), 1); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("WithOutcome(3) error = %v, want invalid argument", err)
	}
}

func TestPackage_RoundTrip(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusAborted, StatusInProgress} {
		t.Run(status.String(), func(t *testing.T) {
			p, _ := NewPackage("pkg & co", "Content", status, NoLog)
			data, _ := contract.Marshal(p)
			got, err := contract.Unmarshal(data, DecodePackage)
			if err != nil {
				t.Fatalf("Unmarshal(%s): %v", data, err)
			}
			if !got.Equal(p) {
				t.Errorf("round trip = %v, want %v", got, p)
			}
		})
	}
}

func TestDecodePackage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		attr string
	}{
		{"non-integer status", `<PSXArchivePackage name="a" type="b" status="done" logId="-1"/>`, "status"},
		{"illegal status", `<PSXArchivePackage name="a" type="b" status="9" logId="-1"/>`, "status"},
		{"non-integer log id", `<PSXArchivePackage name="a" type="b" status="0" logId="x"/>`, "logId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := contract.Unmarshal([]byte(tc.xml), DecodePackage)
			var ia *contract.InvalidAttributeError
			if !errors.As(err, &ia) || ia.Name != tc.attr {
				t.Errorf("error = %v, want InvalidAttributeError(%s)", err, tc.attr)
			}
		})
	}
	_, err := contract.Unmarshal([]byte(`<PSXArchivePackage name="a" status="0" logId="1"/>`), DecodePackage)
	var me *contract.MissingElementError
	if !errors.As(err, &me) || me.Name != "type" {
		t.Errorf("missing type error = %v", err)
	}
}

func sampleInfo(t *testing.T) *Info {
	t.Helper()
	info, err := NewInfo(InfoParams{
		ArchiveRef:    "support-2026",
		SourceServer:  "srv1:9992",
		ServerVersion: "8.1",
		UserName:      "admin",
		Created:       time.Date(2026, 10, 1, 12, 30, 15, 999, time.FixedZone("x", 3600)),
	})
	if err != nil {
		t.Fatalf("NewInfo: %v", err)
	}
	return info
}

func TestSummary_RoundTrip(t *testing.T) {
	a, _ := NewPackage("pkg1", "Content", StatusInProgress, NoLog)
	b, _ := NewPackage("pkg2", "Application", StatusCompleted, 3)
	s, err := NewSummary(sampleInfo(t), a, b)
	if err != nil {
		t.Fatalf("NewSummary: %v", err)
	}
	if s.ID() != NoID {
		t.Errorf("ID() = %d, want %d", s.ID(), NoID)
	}

	for _, v := range []*Summary{s, s.WithID(12)} {
		data, _ := contract.Marshal(v)
		got, err := contract.Unmarshal(data, DecodeSummary)
		if err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !got.Equal(v) {
			t.Errorf("round trip mismatch: %s", data)
		}
	}
}

func TestSummary_WithPackage(t *testing.T) {
	pending, _ := NewPackage("pkg1", "Content", StatusInProgress, NoLog)
	s, _ := NewSummary(sampleInfo(t), pending)

	done, _ := pending.WithOutcome(StatusCompleted, 5)
	s2 := s.WithPackage(done)
	if s.Package("pkg1").Status() != StatusInProgress {
		t.Error("WithPackage modified the original summary")
	}
	if !s2.Package("pkg1").IsInstalled() || len(s2.Packages()) != 1 {
		t.Errorf("WithPackage did not replace by name: %v", s2.Packages())
	}

	other, _ := NewPackage("pkg2", "Content", StatusInProgress, NoLog)
	if s3 := s2.WithPackage(other); len(s3.Packages()) != 2 {
		t.Errorf("WithPackage(new name) = %d packages, want 2", len(s3.Packages()))
	}
	if s.Package("missing") != nil {
		t.Error("Package(missing) should be nil")
	}
}

func TestNewSummary_Rejections(t *testing.T) {
	p, _ := NewPackage("pkg1", "Content", StatusInProgress, NoLog)
	if _, err := NewSummary(nil, p); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("nil info error = %v", err)
	}
	if _, err := NewSummary(sampleInfo(t), p, p); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("duplicate package error = %v", err)
	}
	if _, err := NewInfo(InfoParams{ArchiveRef: "a", SourceServer: "s", UserName: "u"}); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("zero created error = %v", err)
	}
}

func TestDecodeInfo_BadDate(t *testing.T) {
	xml := `<PSXArchiveInfo archiveRef="a" sourceServer="s" userName="u" createDate="yesterday"/>`
	_, err := contract.Unmarshal([]byte(xml), DecodeInfo)
	var ia *contract.InvalidAttributeError
	if !errors.As(err, &ia) || ia.Name != "createDate" {
		t.Errorf("error = %v, want InvalidAttributeError(createDate)", err)
	}
}

func TestDecodeSummary_DuplicatePackage(t *testing.T) {
	p, _ := NewPackage("pkg1", "Content", StatusInProgress, NoLog)
	s, _ := NewSummary(sampleInfo(t), p)
	el := s.ToXML()
	el.AddChild(p.ToXML())

	_, err := DecodeSummary(el)
	var ia *contract.InvalidAttributeError
	if !errors.As(err, &ia) || ia.Name != "name" || ia.Value != "pkg1" {
		t.Errorf("DecodeSummary(duplicate) error = %v, want InvalidAttributeError(name=pkg1)", err)
	}
}
