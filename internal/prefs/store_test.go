package prefs

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T, defaultTheme string) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), defaultTheme)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestThemeDefault(t *testing.T) {
	store := openTestStore(t, ThemeDark)

	if got := store.Theme(); got != ThemeDark {
		t.Errorf("theme = %q, want dark default", got)
	}
}

func TestThemeRoundtrip(t *testing.T) {
	store := openTestStore(t, ThemeDark)

	if err := store.SetTheme(ThemeLight); err != nil {
		t.Fatalf("set theme failed: %v", err)
	}
	if got := store.Theme(); got != ThemeLight {
		t.Errorf("theme = %q, want light", got)
	}
}

func TestSetTheme_Invalid(t *testing.T) {
	store := openTestStore(t, ThemeDark)

	if err := store.SetTheme("solarized"); !errors.Is(err, ErrInvalidTheme) {
		t.Errorf("expected ErrInvalidTheme, got %v", err)
	}
	if got := store.Theme(); got != ThemeDark {
		t.Errorf("rejected theme must not stick, got %q", got)
	}
}

func TestInvalidDefaultThemeFallsBackToDark(t *testing.T) {
	store := openTestStore(t, "neon")

	if got := store.Theme(); got != ThemeDark {
		t.Errorf("theme = %q, want dark", got)
	}
}

func TestFacilityRoundtrip(t *testing.T) {
	store := openTestStore(t, ThemeDark)

	if _, ok := store.Facility(); ok {
		t.Error("no facility should be stored initially")
	}

	if err := store.SetFacility(42); err != nil {
		t.Fatalf("set facility failed: %v", err)
	}
	id, ok := store.Facility()
	if !ok || id != 42 {
		t.Errorf("facility = %d, %v; want 42, true", id, ok)
	}

	if err := store.ClearFacility(); err != nil {
		t.Fatalf("clear facility failed: %v", err)
	}
	if _, ok := store.Facility(); ok {
		t.Error("facility should be gone after clear")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, ThemeDark)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := store.SetTheme(ThemeLight); err != nil {
		t.Fatalf("set theme failed: %v", err)
	}
	if err := store.SetFacility(7); err != nil {
		t.Fatalf("set facility failed: %v", err)
	}
	store.Close()

	reopened, err := Open(dir, ThemeDark)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if got := reopened.Theme(); got != ThemeLight {
		t.Errorf("theme = %q, want light after reopen", got)
	}
	if id, ok := reopened.Facility(); !ok || id != 7 {
		t.Errorf("facility = %d, %v; want 7, true", id, ok)
	}
}
