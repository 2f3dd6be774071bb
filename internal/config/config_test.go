package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.CompactWidth != 100 || cfg.PageSize != defaultPageSize {
		t.Fatalf("CompactWidth/PageSize = %d/%d, want 100/%d", cfg.CompactWidth, cfg.PageSize, defaultPageSize)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if !slices.Equal(cfg.Invalidate.HistoryRestore, filter.Families()) {
		t.Fatalf("HistoryRestore = %v, want every family", cfg.Invalidate.HistoryRestore)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
api_base = "  https://api.cinemoa.test  "
viewer_id = 42
request_timeout = "2s"
page_size = 20
scroll_threshold = 0
home_sections = [" Popular ", "closing", ""]
log_file = "  ~/logs/cinemoa.log  "
log_level = "DEBUG"

[invalidate]
foreground = ["home"]
history_restore = []
min_interval = "500ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "https://api.cinemoa.test" || cfg.ViewerID != 42 {
		t.Fatalf("APIBase/ViewerID = %q/%d", cfg.APIBase, cfg.ViewerID)
	}
	if cfg.RequestTimeout != 2*time.Second || cfg.PageSize != 20 || cfg.ScrollThreshold != 0 {
		t.Fatalf("timeout/page/threshold = %v/%d/%d", cfg.RequestTimeout, cfg.PageSize, cfg.ScrollThreshold)
	}
	if !slices.Equal(cfg.HomeSections, []string{"popular", "closing"}) {
		t.Fatalf("HomeSections = %v", cfg.HomeSections)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !slices.Equal(cfg.Invalidate.Foreground, []filter.Family{filter.FamilyHome}) {
		t.Fatalf("Foreground = %v, want [home]", cfg.Invalidate.Foreground)
	}
	if len(cfg.Invalidate.HistoryRestore) != 0 {
		t.Fatalf("HistoryRestore = %v, want explicitly empty", cfg.Invalidate.HistoryRestore)
	}
	if cfg.Invalidate.MinInterval != 500*time.Millisecond {
		t.Fatalf("MinInterval = %v, want 500ms", cfg.Invalidate.MinInterval)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := map[string]string{
		"parse config":            `api_base = [`,
		"request_timeout":         `request_timeout = "soon"`,
		"invalidate.foreground":   "[invalidate]\nforeground = [\"feed\"]",
		"invalidate.min_interval": "[invalidate]\nmin_interval = \"-1s\"",
		"scroll_threshold":        `scroll_threshold = -2`,
		"viewer_id":               `viewer_id = -1`,
	}
	for want, body := range tests {
		_, err := Load(writeConfig(t, body))
		if err == nil {
			t.Fatalf("Load(%q) returned nil error", body)
		}
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("Load error = %q, want it to mention %q", err.Error(), want)
		}
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CINEMOA_API_BASE", "http://10.0.0.5:9000")
	t.Setenv("CINEMOA_VIEWER_ID", "7")
	t.Setenv("CINEMOA_REQUEST_TIMEOUT", "750ms")
	t.Setenv("CINEMOA_METRICS_ADDR", "127.0.0.1:9100")

	cfg, err := Load(writeConfig(t, `api_base = "http://file"`+"\nviewer_id = 3\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "http://10.0.0.5:9000" || cfg.ViewerID != 7 {
		t.Fatalf("APIBase/ViewerID = %q/%d, want env values", cfg.APIBase, cfg.ViewerID)
	}
	if cfg.RequestTimeout != 750*time.Millisecond || cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Fatalf("RequestTimeout/MetricsAddr = %v/%q", cfg.RequestTimeout, cfg.MetricsAddr)
	}

	t.Setenv("CINEMOA_VIEWER_ID", "abc")
	if _, err := Load(filepath.Join(home, "missing.toml")); err == nil {
		t.Fatal("Load accepted a non-numeric CINEMOA_VIEWER_ID")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
