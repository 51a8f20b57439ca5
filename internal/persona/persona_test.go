package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/avoronov/interviewer/internal/model"
)

func writePersona(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatalf("write persona file: %v", err)
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	writePersona(t, dir, "strict.yaml", `
name: strict
description: demanding
opening: "We start now."
followup_style: "a sharp question"
directives:
  - "Be terse."
feedback:
  low: "Not acceptable."
  mid: "More rigor."
  high: "Correct."
`)
	writePersona(t, dir, "kind.yaml", `
name: kind
description: warm
`)
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestLoadAndGet(t *testing.T) {
	r := newTestRegistry(t)

	if got := r.Names(); len(got) != 2 || got[0] != "kind" || got[1] != "strict" {
		t.Fatalf("expected sorted names [kind strict], got %v", got)
	}

	p, err := r.Get("strict")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Opening != "We start now." {
		t.Errorf("unexpected opening: %q", p.Opening)
	}
	if len(p.Directives) != 1 || p.Directives[0] != "Be terse." {
		t.Errorf("unexpected directives: %v", p.Directives)
	}

	_, err = r.Get("nonexistent")
	if !errors.Is(err, ErrUnknownPersona) {
		t.Errorf("expected ErrUnknownPersona, got %v", err)
	}
}

func TestGetEmptyNameReturnsLoadedPersona(t *testing.T) {
	r := newTestRegistry(t)
	seen := map[string]bool{}
	for range 50 {
		p, err := r.Get("")
		if err != nil {
			t.Fatalf("Get(\"\"): %v", err)
		}
		seen[p.Name] = true
	}
	for name := range seen {
		if name != "strict" && name != "kind" {
			t.Errorf("random pick returned unknown persona %q", name)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("empty dir", func(t *testing.T) {
		if _, err := Load(t.TempDir()); err == nil {
			t.Error("expected error for empty directory")
		}
	})

	t.Run("nameless persona", func(t *testing.T) {
		dir := t.TempDir()
		writePersona(t, dir, "bad.yaml", "description: no name here\n")
		if _, err := Load(dir); err == nil {
			t.Error("expected error for persona without name")
		}
	})

	t.Run("duplicate names", func(t *testing.T) {
		dir := t.TempDir()
		writePersona(t, dir, "a.yaml", "name: dup\n")
		writePersona(t, dir, "b.yaml", "name: dup\n")
		if _, err := Load(dir); err == nil {
			t.Error("expected error for duplicate persona names")
		}
	})
}

func TestFeedbackBands(t *testing.T) {
	p := model.Persona{
		Name: "strict",
		Feedback: model.FeedbackBands{
			Low:  "low band",
			Mid:  "mid band",
			High: "high band",
		},
	}

	tests := []struct {
		total float64
		want  string
	}{
		{0, "low band"},
		{5.9, "low band"},
		{6.0, "mid band"},
		{7.5, "mid band"},
		{8.0, "mid band"},
		{8.1, "high band"},
		{10, "high band"},
	}
	for _, tt := range tests {
		if got := Feedback(p, tt.total); got != tt.want {
			t.Errorf("Feedback(%.1f) = %q, want %q", tt.total, got, tt.want)
		}
	}

	// Defaults kick in when a band is empty.
	if got := Feedback(model.Persona{Name: "bare"}, 9.0); got == "" {
		t.Error("expected non-empty default feedback")
	}
}
