package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
listen: ":9090"
log:
  level: debug
  max_size: 5
servers:
  - server: target.lab.local
    port: 9992
    userid: admin
    password: QUJD
    pwd_encrypted: true
dbms_maps:
  - source_server: srv1
    mappings:
      - source: rxdefault
        target: myTarget
      - source: A
        target: X
      - source: A
        target: Y
      - source: unmapped
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployctl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// inTempDir keeps Load from picking up a .env file in the package directory.
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_File(t *testing.T) {
	inTempDir(t)
	c, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != ":9090" {
		t.Errorf("Listen = %q, want %q", c.Listen, ":9090")
	}
	if c.LoggerConfig().MaxSize != 5 || c.Log.Level != "debug" {
		t.Errorf("Log = %+v", c.Log)
	}

	servers, err := c.ServerConnections()
	if err != nil {
		t.Fatal(err)
	}
	if len(servers) != 1 || !servers[0].IsPwdEncrypted() || servers[0].Address() != "target.lab.local:9992" {
		t.Errorf("ServerConnections() = %v", servers)
	}

	reg, err := c.Registry()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		source string
		want   string
		ok     bool
	}{
		{"rxdefault", "myTarget", true},
		{"A", "X", true},
		{"unmapped", "", false},
		{"missing", "", false},
	}
	for _, tc := range tests {
		got, ok := reg.Resolve("srv1", tc.source)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Resolve(srv1, %s) = (%q, %v), want (%q, %v)", tc.source, got, ok, tc.want, tc.ok)
		}
	}
	if n := reg.Get("srv1").Len(); n != 4 {
		t.Errorf("srv1 map has %d mappings, want 4", n)
	}
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv(EnvListen, "")
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != DefaultListen {
		t.Errorf("Listen = %q, want %q", c.Listen, DefaultListen)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv(EnvListen, "127.0.0.1:7000")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFile, "/tmp/deployctl/test.log")

	c, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != "127.0.0.1:7000" || c.Log.Level != "error" || c.Log.File != "/tmp/deployctl/test.log" {
		t.Errorf("env not applied: listen=%q log=%+v", c.Listen, c.Log)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv(EnvListen, "")
	os.Unsetenv(EnvListen)
	if err := os.WriteFile(".env", []byte(EnvListen+"=:6000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvListen) })

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != ":6000" {
		t.Errorf("Listen = %q, want value from .env", c.Listen)
	}
}

func TestLoad_Invalid(t *testing.T) {
	inTempDir(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "listen: [", "parsing"},
		{"port", "servers:\n  - server: s\n    port: 0\n    userid: u\n", "Port"},
		{"userid", "servers:\n  - server: s\n    port: 1\n", "UserID"},
		{"mapping source", "dbms_maps:\n  - source_server: srv1\n    mappings:\n      - target: x\n", "Source"},
		{"duplicate map", "dbms_maps:\n  - source_server: srv1\n  - source_server: srv1\n", "declared twice"},
		{"log level", "log:\n  level: loud\n", "Level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing file) should fail")
	}
}
