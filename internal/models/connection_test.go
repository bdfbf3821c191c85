package models

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rflorenc/deploy-ledger/internal/contract"
)

func TestNewServerConnectionInfo_Validation(t *testing.T) {
	tests := []struct {
		name  string
		p     ConnectionParams
		field string
	}{
		{"empty server", ConnectionParams{Port: 9992, UserID: "admin"}, "server"},
		{"zero port", ConnectionParams{Server: "srv1", UserID: "admin"}, "port"},
		{"negative port", ConnectionParams{Server: "srv1", Port: -1, UserID: "admin"}, "port"},
		{"empty userid", ConnectionParams{Server: "srv1", Port: 9992}, "userid"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewServerConnectionInfo(tc.p)
			var ia *contract.InvalidArgumentError
			if c != nil || !errors.As(err, &ia) || ia.Field != tc.field {
				t.Errorf("NewServerConnectionInfo = (%v, %v), want InvalidArgumentError(%s)", c, err, tc.field)
			}
		})
	}
	if _, err := NewServerConnectionInfo(ConnectionParams{Server: "srv1", Port: 1, UserID: "u"}); err != nil {
		t.Errorf("empty password rejected: %v", err)
	}
}

func TestServerConnectionInfo_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		p    ConnectionParams
	}{
		{"plain", ConnectionParams{Server: "srv1", Port: 9992, UserID: "admin", Password: "s3cret"}},
		{"encrypted", ConnectionParams{Server: "srv1", Port: 443, UserID: "admin", Password: "QUJD==", PwdEncrypted: true}},
		{"empty password", ConnectionParams{Server: "db.lab.local", Port: 1, UserID: "ops"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewServerConnectionInfo(tc.p)
			if err != nil {
				t.Fatal(err)
			}
			data, _ := contract.Marshal(c)
			got, err := contract.Unmarshal(data, DecodeServerConnectionInfo)
			if err != nil {
				t.Fatalf("Unmarshal(%s): %v", data, err)
			}
			if !got.Equal(c) || got.Hash() != c.Hash() {
				t.Errorf("round trip mismatch: %s", data)
			}
		})
	}
}

func TestServerConnectionInfo_EqualityUsesRawPassword(t *testing.T) {
	base := ConnectionParams{Server: "srv1", Port: 9992, UserID: "admin", Password: "abc"}
	a, _ := NewServerConnectionInfo(base)

	other := base
	other.Password = "abd"
	b, _ := NewServerConnectionInfo(other)

	flagged := base
	flagged.PwdEncrypted = true
	c, _ := NewServerConnectionInfo(flagged)

	if a.Equal(b) || a.Hash() == b.Hash() {
		t.Error("different passwords compare equal")
	}
	if a.Equal(c) || a.Hash() == c.Hash() {
		t.Error("encryption flag ignored by Equal or Hash")
	}
}

func TestServerConnectionInfo_String(t *testing.T) {
	c, _ := NewServerConnectionInfo(ConnectionParams{Server: "srv1", Port: 9992, UserID: "admin", Password: "hunter2"})
	if s := c.String(); strings.Contains(s, "hunter2") {
		t.Errorf("String() = %q leaks the password", s)
	}
	if got := c.Address(); got != "srv1:9992" {
		t.Errorf("Address() = %q, want %q", got, "srv1:9992")
	}
}

func TestDecodeServerConnectionInfo_Malformed(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		kind error
	}{
		{"missing password", `<PSXServerConnectionInfo server="s" port="1" userid="u" isPwdEncrypted="false"/>`, contract.ErrMissingElement},
		{"port text", `<PSXServerConnectionInfo server="s" port="http" userid="u" password="" isPwdEncrypted="false"/>`, contract.ErrInvalidAttribute},
		{"port zero", `<PSXServerConnectionInfo server="s" port="0" userid="u" password="" isPwdEncrypted="false"/>`, contract.ErrInvalidAttribute},
		{"flag", `<PSXServerConnectionInfo server="s" port="1" userid="u" password="" isPwdEncrypted="Yes"/>`, contract.ErrInvalidAttribute},
		{"wrong tag", `<PSXDbmsMap sourceServer="s"/>`, contract.ErrWrongElementType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := contract.Unmarshal([]byte(tc.xml), DecodeServerConnectionInfo); !errors.Is(err, tc.kind) {
				t.Errorf("error = %v, want %v", err, tc.kind)
			}
		})
	}
}

func newConn(t *testing.T, server string) *ServerConnectionInfo {
	t.Helper()
	c, err := NewServerConnectionInfo(ConnectionParams{Server: server, Port: 9992, UserID: "admin"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestServerStore_CRUD(t *testing.T) {
	store := NewServerStore()

	id := store.Create(newConn(t, "srv2"))
	if id == "" {
		t.Fatal("Create did not assign an ID")
	}
	store.Create(newConn(t, "srv1"))

	if got := store.Get(id); got == nil || got.Server() != "srv2" {
		t.Fatalf("Get(%s) returned %v", id, got)
	}
	if store.Get("nonexistent") != nil {
		t.Error("Get(nonexistent) should return nil")
	}

	list := store.List()
	if len(list) != 2 || list[0].Info.Server() != "srv1" {
		t.Fatalf("List() = %v, want srv1 first", list)
	}

	if !store.Delete(id) {
		t.Fatal("Delete returned false for existing server")
	}
	if store.Get(id) != nil {
		t.Error("Get after Delete should return nil")
	}
	if store.Delete("missing") {
		t.Error("Delete should return false for missing ID")
	}
}

func TestServerStore_Concurrent(t *testing.T) {
	store := NewServerStore()
	c := newConn(t, "srv1")
	var wg sync.WaitGroup

	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- store.Create(c)
		}()
	}
	wg.Wait()
	close(ids)

	if n := len(store.List()); n != 50 {
		t.Fatalf("expected 50 servers, got %d", n)
	}
	for id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			store.Get(id)
		}(id)
		go func(id string) {
			defer wg.Done()
			store.Delete(id)
		}(id)
	}
	wg.Wait()
	if n := len(store.List()); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}
}
