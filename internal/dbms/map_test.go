package dbms

import (
	"errors"
	"testing"

	"github.com/rflorenc/deploy-ledger/internal/contract"
)

func roundTrip(t *testing.T, m *Map) *Map {
	t.Helper()
	data, err := contract.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := contract.Unmarshal(data, DecodeMap)
	if err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	return got
}

func TestNewDatasourceMap(t *testing.T) {
	if _, err := NewDatasourceMap("", "x"); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("NewDatasourceMap(empty source) error = %v, want invalid argument", err)
	}
	d, err := NewDatasourceMap("rxdefault", "")
	if err != nil {
		t.Fatalf("NewDatasourceMap: %v", err)
	}
	if d.Target() != "" {
		t.Errorf("Target() = %q, want empty", d.Target())
	}
	d2, err := d.WithTarget("other")
	if err != nil {
		t.Fatal(err)
	}
	if d.Target() != "" || d2.Target() != "other" {
		t.Errorf("WithTarget changed the original: %q / %q", d.Target(), d2.Target())
	}
	for _, bad := range []string{"a\x01b", "\xff"} {
		if _, err := NewDatasourceMap(bad, ""); !errors.Is(err, contract.ErrInvalidArgument) {
			t.Errorf("NewDatasourceMap(%q) error = %v, want invalid argument", bad, err)
		}
		if _, err := d.WithTarget(bad); !errors.Is(err, contract.ErrInvalidArgument) {
			t.Errorf("WithTarget(%q) error = %v, want invalid argument", bad, err)
		}
	}
}

func TestDatasourceMap_RoundTripEmptyTarget(t *testing.T) {
	d, _ := NewDatasourceMap("rxdefault", "")
	data, err := contract.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := contract.Unmarshal(data, DecodeDatasourceMap)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(d) {
		t.Errorf("round trip = %+v, want %+v", got, d)
	}
}

func TestMapping_MirrorsDatasourceMap(t *testing.T) {
	if _, err := NewMapping(nil); !errors.Is(err, contract.ErrInvalidArgument) {
		t.Errorf("NewMapping(nil) error = %v, want invalid argument", err)
	}
	m := MustMapping("src", "dst")
	if m.SourceInfo() != m.DatasourceMap().Source() {
		t.Errorf("SourceInfo() = %q, want %q", m.SourceInfo(), m.DatasourceMap().Source())
	}
	if m.TargetInfo() != "dst" {
		t.Errorf("TargetInfo() = %q, want dst", m.TargetInfo())
	}
}

func TestMap_EndToEnd(t *testing.T) {
	m, err := NewMap("srv1")
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	if err := m.AddMapping(MustMapping("rxdefault", "myTarget")); err != nil {
		t.Fatalf("AddMapping: %v", err)
	}

	got := roundTrip(t, m)
	if got.SourceServer() != "srv1" {
		t.Errorf("SourceServer() = %q, want srv1", got.SourceServer())
	}
	mapping := got.GetMapping("rxdefault")
	if mapping == nil {
		t.Fatal("GetMapping(rxdefault) = nil")
	}
	if mapping.DatasourceMap().Target() != "myTarget" {
		t.Errorf("target = %q, want myTarget", mapping.DatasourceMap().Target())
	}
	if !got.Equal(m) {
		t.Error("decoded map not equal to original")
	}
}

func TestMap_Shadowing(t *testing.T) {
	m, _ := NewMap("srv1")
	m.AddMapping(MustMapping("A", "X"))
	m.AddMapping(MustMapping("A", "Y"))

	if got := m.GetMapping("A").TargetInfo(); got != "X" {
		t.Fatalf("GetMapping(A) target = %q, want X", got)
	}

	// Removal is by matched key, so passing the shadowed entry still removes
	// the first one.
	if !m.RemoveMapping(MustMapping("A", "Y")) {
		t.Fatal("RemoveMapping returned false")
	}
	if got := m.GetMapping("A").TargetInfo(); got != "Y" {
		t.Errorf("after remove, GetMapping(A) target = %q, want Y", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	m.RemoveMapping(MustMapping("A", ""))
	if m.GetMapping("A") != nil {
		t.Error("GetMapping(A) should be nil after removing both entries")
	}
	if m.RemoveMapping(MustMapping("A", "")) {
		t.Error("RemoveMapping on missing source should return false")
	}
}

func TestMap_DuplicatesSurviveRoundTrip(t *testing.T) {
	m, _ := NewMap("srv1")
	m.AddMapping(MustMapping("A", "X"))
	m.AddMapping(MustMapping("A", "Y"))
	m.AddMapping(MustMapping("B", ""))

	got := roundTrip(t, m)
	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	if !got.Equal(m) {
		t.Error("decoded map not equal to original")
	}
}

func TestMap_Resolve(t *testing.T) {
	m, _ := NewMap("srv1")
	m.AddMapping(MustMapping("A", "X"))
	m.AddMapping(MustMapping("B", ""))

	tests := []struct {
		source string
		want   string
		ok     bool
	}{
		{"A", "X", true},
		{"B", "", false},
		{"C", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.source, func(t *testing.T) {
			got, ok := m.Resolve(tc.source)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tc.source, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m, _ := NewMap("srv1")
	m.AddMapping(MustMapping("A", "X"))
	c := m.Clone()
	c.AddMapping(MustMapping("B", "Y"))
	if m.Len() != 1 {
		t.Errorf("original Len() = %d after mutating clone, want 1", m.Len())
	}
}

func TestDecode_TagMismatch(t *testing.T) {
	m, _ := NewMap("srv1")
	m.AddMapping(MustMapping("A", "X"))
	data, _ := contract.Marshal(m)

	_, err := contract.Unmarshal(data, DecodeMapping)
	var wrong *contract.WrongElementTypeError
	if !errors.As(err, &wrong) {
		t.Fatalf("DecodeMapping(PSXDbmsMap) error = %v, want WrongElementTypeError", err)
	}
	if wrong.Expected != MappingTag || wrong.Actual != MapTag {
		t.Errorf("error = (%q, %q), want (%q, %q)", wrong.Expected, wrong.Actual, MappingTag, MapTag)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		kind error
	}{
		{"missing server", `<PSXDbmsMap/>`, contract.ErrMissingElement},
		{"empty server", `<PSXDbmsMap sourceServer=""/>`, contract.ErrInvalidAttribute},
		{"mapping without datasource", `<PSXDbmsMap sourceServer="s"><PSXDbmsMapping/></PSXDbmsMap>`, contract.ErrMissingElement},
		{"missing target", `<PSXDbmsMap sourceServer="s"><PSXDbmsMapping><PSXDatasourceMap source="a"/></PSXDbmsMapping></PSXDbmsMap>`, contract.ErrMissingElement},
		{"stray child", `<PSXDbmsMap sourceServer="s"><Other/></PSXDbmsMap>`, contract.ErrWrongElementType},
		{"second datasource", `<PSXDbmsMap sourceServer="s"><PSXDbmsMapping><PSXDatasourceMap source="a" target="b"/><PSXDatasourceMap source="a" target="c"/></PSXDbmsMapping></PSXDbmsMap>`, contract.ErrWrongElementType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := contract.Unmarshal([]byte(tc.xml), DecodeMap)
			if !errors.Is(err, tc.kind) {
				t.Errorf("DecodeMap(%s) error = %v, want %v", tc.xml, err, tc.kind)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	m, _ := NewMap("srv1")
	m.AddMapping(MustMapping("rxdefault", "myTarget"))
	r.Put(m)

	// Mutating the caller's map must not leak into the registry.
	m.AddMapping(MustMapping("other", "x"))
	if got := r.Get("srv1"); got.Len() != 1 {
		t.Errorf("registry map Len() = %d, want 1", got.Len())
	}

	if got, ok := r.Resolve("srv1", "rxdefault"); !ok || got != "myTarget" {
		t.Errorf("Resolve = (%q, %v), want (myTarget, true)", got, ok)
	}
	if _, ok := r.Resolve("nope", "rxdefault"); ok {
		t.Error("Resolve on unknown server should fail")
	}
	if r.Get("nope") != nil {
		t.Error("Get(nope) should be nil")
	}
	if got := r.Servers(); len(got) != 1 || got[0] != "srv1" {
		t.Errorf("Servers() = %v, want [srv1]", got)
	}
	if !r.Delete("srv1") || r.Delete("srv1") {
		t.Error("Delete should succeed once")
	}
}
