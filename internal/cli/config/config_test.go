package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	want := filepath.Join("/home/tester", ".tagurl", "cli.yaml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, ".tagurl", "cli.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	content := "key_table: /etc/tagurl/tags.yaml\noutput: json\nreader: 1\nadmin_token: from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TAGURL_CLI_ADMIN__TOKEN", "from-env")
	t.Setenv("TAGURL_CLI_SERVER", "https://tags.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"key_table", cfg.KeyTable, "/etc/tagurl/tags.yaml"},
		{"output", cfg.Output, "json"},
		{"reader", cfg.Reader, 1},
		{"admin_token", cfg.AdminToken, "from-env"},
		{"server", cfg.Server, "https://tags.example.com"},
		{"base_url", cfg.BaseURL, Default().BaseURL},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_ExplicitMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with a missing explicit file should fail")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("output: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid YAML should fail")
	}
}

func TestSanitized(t *testing.T) {
	cfg := Default()
	cfg.AdminToken = "secret"

	if got := cfg.Sanitized().AdminToken; got != "***" {
		t.Errorf("Sanitized().AdminToken = %q", got)
	}
	if cfg.AdminToken != "secret" {
		t.Error("Sanitized() modified the receiver")
	}
}
