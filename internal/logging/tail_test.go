package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cinemoa.log")
	var content strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&content, "line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		name  string
		n     int
		first string
		count int
	}{
		{"none", 0, "", 0},
		{"partial", 4, "line 7", 4},
		{"exact", 10, "line 1", 10},
		{"more than exists", 25, "line 1", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := Tail(path, tt.n)
			if err != nil {
				t.Fatalf("Tail returned error: %v", err)
			}
			if len(lines) != tt.count {
				t.Fatalf("Tail(%d) returned %d lines, want %d", tt.n, len(lines), tt.count)
			}
			if tt.count > 0 && lines[0].Raw != tt.first {
				t.Fatalf("first line = %q, want %q", lines[0].Raw, tt.first)
			}
			if tt.count > 0 && lines[len(lines)-1].Raw != "line 10" {
				t.Fatalf("last line = %q, want line 10", lines[len(lines)-1].Raw)
			}
		})
	}
}

func TestTail_DecodesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cinemoa.log")
	log, closer, err := Open(path, "debug")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	log.Warn().Str("component", "listing").Msg("page fetch failed")
	_ = closer.Close()

	lines, err := Tail(path, 5)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Tail returned %d lines, want 1", len(lines))
	}
	got := lines[0]
	if got.Level != "warn" || got.Component != "listing" || got.Message != "page fetch failed" || got.Time.IsZero() {
		t.Fatalf("decoded line = %+v", got)
	}
}

func TestTail_MissingFile(t *testing.T) {
	lines, err := Tail(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || lines != nil {
		t.Fatalf("Tail on missing file = %v, %v; want nil, nil", lines, err)
	}
}
