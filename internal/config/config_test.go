package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "EDIT_TIMEOUT", "SESSION_TTL", "PROJECT_BUCKET_NAME", "PROJECT_TABLE_NAME", "METRICS_NAMESPACE", "MAX_UPLOAD_MB", "PROJECT_RETENTION"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := FromEnv()
	if cfg.App.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.App.Port)
	}
	if cfg.Session.EditTimeout != 90*time.Second {
		t.Errorf("EditTimeout = %v", cfg.Session.EditTimeout)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("TTL = %v", cfg.Session.TTL)
	}
	if cfg.Session.MaxUpload != 20<<20 {
		t.Errorf("MaxUpload = %d", cfg.Session.MaxUpload)
	}
	if cfg.Metrics.Namespace != "ProductCraft" {
		t.Errorf("Namespace = %q", cfg.Metrics.Namespace)
	}
	if cfg.Storage.CloudArchive() {
		t.Error("CloudArchive() should be false without bucket and table")
	}
	if cfg.Storage.Retention != 0 {
		t.Errorf("Retention = %v, want records kept", cfg.Storage.Retention)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EDIT_TIMEOUT", "45s")
	t.Setenv("SESSION_TTL", "600")
	t.Setenv("PROJECT_BUCKET_NAME", "bucket")
	t.Setenv("PROJECT_TABLE_NAME", "table")
	t.Setenv("METRICS_NAMESPACE", "")
	t.Setenv("PROJECT_RETENTION", "720h")

	cfg := FromEnv()
	if cfg.App.Port != 9090 {
		t.Errorf("Port = %d", cfg.App.Port)
	}
	if cfg.Session.EditTimeout != 45*time.Second {
		t.Errorf("EditTimeout = %v", cfg.Session.EditTimeout)
	}
	if cfg.Session.TTL != 10*time.Minute {
		t.Errorf("TTL = %v, want bare seconds to parse", cfg.Session.TTL)
	}
	if !cfg.Storage.CloudArchive() {
		t.Error("CloudArchive() should be true")
	}
	if cfg.Storage.Retention != 30*24*time.Hour {
		t.Errorf("Retention = %v", cfg.Storage.Retention)
	}
	if cfg.Metrics.Namespace != "" {
		t.Errorf("an explicitly empty namespace should disable metrics, got %q", cfg.Metrics.Namespace)
	}
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("EDIT_TIMEOUT", "soon")

	cfg := FromEnv()
	if cfg.App.Port != 8080 {
		t.Errorf("Port = %d, want fallback", cfg.App.Port)
	}
	if cfg.Session.EditTimeout != 90*time.Second {
		t.Errorf("EditTimeout = %v, want fallback", cfg.Session.EditTimeout)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PROJECT_ARCHIVE_DIR=/tmp/pc-archive\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROJECT_ARCHIVE_DIR", "")
	os.Unsetenv("PROJECT_ARCHIVE_DIR")

	cfg := Load()
	if cfg.Storage.ArchiveDir != "/tmp/pc-archive" {
		t.Errorf("ArchiveDir = %q", cfg.Storage.ArchiveDir)
	}
}
