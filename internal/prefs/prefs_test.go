package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

func writePrefs(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme || p.Sort() != filter.SortLatest {
		t.Fatalf("prefs = %+v, want defaults", p)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writePrefs(t, filepath.Join(home, ".config", "cinemoa", "prefs.toml"),
		"theme = \"Slate\"\ndefault_sort = \"deadline\"\n")

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want Slate", p.Theme)
	}
	if p.Sort() != filter.SortDeadline || p.DefaultSort != "DEADLINE" {
		t.Fatalf("DefaultSort = %q, want DEADLINE", p.DefaultSort)
	}
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Kanagawa", DefaultSort: string(filter.SortPopular)}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Theme != "Kanagawa" || loaded.Sort() != filter.SortPopular {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestLoad_DegradesGracefully(t *testing.T) {
	tests := map[string]string{
		"empty theme":  "theme = \"\"\n",
		"invalid toml": "not valid toml {{{\n",
		"unknown sort": "default_sort = \"RANDOM\"\n",
		"wrong type":   "theme = 3\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			writePrefs(t, path, body)

			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if p.Theme != defaultTheme || p.Sort() != filter.SortLatest {
				t.Fatalf("prefs = %+v, want defaults", p)
			}
		})
	}
}
