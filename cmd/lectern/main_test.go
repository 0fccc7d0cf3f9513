package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/indexer"
	"github.com/hyperjump/lectern/internal/models"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, path, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Server.Port == 0 || cfg.Retrieval.TopK != 4 {
		t.Errorf("defaults not applied: %+v", cfg.Server)
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LECTERN_DATABASE_PATH", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "server:\n  port: 9090\nstorage:\n  database_path: ./data/lectern.db\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, loaded, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != path || cfg.Server.Port != 9090 {
		t.Errorf("loaded %q port %d", loaded, cfg.Server.Port)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "data", "lectern.db") {
		t.Errorf("database path = %q", cfg.Storage.DatabasePath)
	}
}

func TestInitializeComponents_RequiresSecret(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "lectern.db")
	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestNewGenerators(t *testing.T) {
	if _, _, err := newGenerators(&config.LLMConfig{Provider: config.ProviderLocal}, &config.SummaryConfig{}); err != nil {
		t.Errorf("local: %v", err)
	}
	if _, _, err := newGenerators(&config.LLMConfig{Provider: config.ProviderAnthropic}, &config.SummaryConfig{}); err == nil {
		t.Error("anthropic without key should fail")
	}
	if _, _, err := newGenerators(&config.LLMConfig{Provider: "other"}, &config.SummaryConfig{}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestInitializeComponentsAndLocalStatus(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "lectern.db")
	cfg.Auth.JWTSecret = "secret"

	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.QA.Upload(context.Background(), "u1", "", []indexer.Upload{{Filename: "a.txt", Content: []byte("Cells divide by mitosis.")}})
	if err != nil || res.Status != models.UploadOK {
		t.Fatalf("Upload = %+v, %v", res, err)
	}
	c.Close()

	status, err := localStatus(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if status.Documents != 1 || status.Chunks != 1 || status.DiskUsageBytes == nil {
		t.Errorf("status = %+v", status)
	}
}
