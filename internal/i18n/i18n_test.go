package i18n

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinLocales(t *testing.T) {
	tr, err := NewBuiltin("en")
	if err != nil {
		t.Fatalf("NewBuiltin: %v", err)
	}
	if got := tr.Available(); len(got) != 2 || got[0] != "en" || got[1] != "es" {
		t.Fatalf("unexpected languages %v", got)
	}
	if got := tr.T("es", "validation.already_completed"); got != "Ya completaste este reto." {
		t.Fatalf("unexpected Spanish text %q", got)
	}
	if got := tr.T("fr", "validation.already_completed"); got != "You've already completed this challenge." {
		t.Fatalf("unknown language should fall back to English, got %q", got)
	}
	if got := tr.T("en", "no.such.key"); got != "no.such.key" {
		t.Fatalf("missing key should return the key, got %q", got)
	}
}

func TestBuiltinLocalesShareKeys(t *testing.T) {
	tr, err := NewBuiltin("en")
	if err != nil {
		t.Fatalf("NewBuiltin: %v", err)
	}
	for key := range tr.locales["en"] {
		if _, ok := tr.locales["es"][key]; !ok {
			t.Errorf("es.yaml is missing %s", key)
		}
	}
}

func TestFormat(t *testing.T) {
	tr, err := NewBuiltin("en")
	if err != nil {
		t.Fatalf("NewBuiltin: %v", err)
	}
	got := tr.Format("en", "validation.social_rejected", map[string]string{"tag": "@skullsrainbowroom"})
	if !strings.Contains(got, "'@skullsrainbowroom'") || strings.Contains(got, "{tag}") {
		t.Fatalf("placeholder not filled: %q", got)
	}
}

func TestMatch(t *testing.T) {
	tr, err := NewBuiltin("en")
	if err != nil {
		t.Fatalf("NewBuiltin: %v", err)
	}
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"es-MX,es;q=0.9,en;q=0.8", "es"},
		{"fr-FR, de;q=0.5", "en"},
		{"de, ES", "es"},
	}
	for _, tt := range tests {
		if got := tr.Match(tt.header); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestNewTranslatorFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "de.yaml"), []byte(`greeting: "Hallo"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTranslator(dir, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	if got := tr.T("de", "greeting"); got != "Hallo" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := tr.Available(); len(got) != 2 {
		t.Fatalf("expected de plus an empty default, got %v", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("- not: [a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTranslator(dir, "en"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFallback(t *testing.T) {
	tr := NewFallback("en")
	if got := tr.T("es", "validation.error"); got != "validation.error" {
		t.Fatalf("fallback translator returns keys, got %q", got)
	}
}
