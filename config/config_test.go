package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/formkite/formkite/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := config.Load(); err == nil {
		t.Error("missing token_secret accepted")
	}
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FORMKITE_TOKEN_SECRET", "env-secret")
	t.Setenv("FORMKITE_PORT", "9090")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if cfg.TokenSecret != "env-secret" {
		t.Errorf("token secret = %q", cfg.TokenSecret)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, env override lost", cfg.Port)
	}
	if cfg.Host != "0.0.0.0" || cfg.DBUrl != "formkite.sqlite" {
		t.Errorf("defaults = %q %q", cfg.Host, cfg.DBUrl)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.MockForms {
		t.Error("mock mode on by default")
	}
	if cfg.TTL().Hours() != 8 {
		t.Errorf("ttl = %s, want the 8h default", cfg.TTL())
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("token_secret: file-secret\nport: \"8181\"\ndebug: true\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if cfg.TokenSecret != "file-secret" || cfg.Port != "8181" || !cfg.Debug {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestAddrAndUrl(t *testing.T) {
	cfg := config.Config{Host: "0.0.0.0", Port: "8080"}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.Url() != "http://localhost:8080" {
		t.Errorf("url = %q", cfg.Url())
	}

	cfg.Host = "example.com"
	if cfg.Url() != "http://example.com:8080" {
		t.Errorf("url = %q", cfg.Url())
	}
}
