package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWriteExampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attestly.yaml")

	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("the written example must parse: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver: got %q", cfg.Store.Driver)
	}
	if cfg.Auth.BootstrapSecret != "" {
		t.Error("the example must not ship a bootstrap secret")
	}
}

func TestWriteExampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attestly.yaml")

	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample: %v", err)
	}
	if err := WriteExample(path); err == nil {
		t.Fatal("expected refusal to overwrite an existing file")
	}
}
