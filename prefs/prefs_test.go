package prefs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hammywammy/oslira-core/prefs"
	"github.com/hammywammy/oslira-core/state"
	"github.com/tidwall/gjson"
)

func TestStoreRoundTrip(t *testing.T) {
	store := prefs.NewStore(&prefs.MemStore{}, "oslira")
	ctx := context.Background()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Set("ui.theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("filters.minScore", 75); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := store.Get("ui.theme")
	if !ok || got != "dark" {
		t.Fatalf("Get(ui.theme) = %v, %v, want dark, true", got, ok)
	}
	if _, ok := store.Get("ui.sidebar"); ok {
		t.Fatal("Get(ui.sidebar) reported a value that was never set")
	}
}

func TestStorePrefixNamespacing(t *testing.T) {
	backend := &prefs.MemStore{}
	ctx := context.Background()

	seed := []byte(`{"other_tool":{"keep":true},"oslira":{"ui":{"theme":"light"}}}`)
	if err := backend.Save(ctx, seed); err != nil {
		t.Fatalf("seeding backend: %v", err)
	}

	store := prefs.NewStore(backend, "oslira")
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Set("ui.theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	doc, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("backend.Load: %v", err)
	}
	if !gjson.GetBytes(doc, "other_tool.keep").Bool() {
		t.Error("keys outside the prefix were lost on save")
	}
	if got := gjson.GetBytes(doc, "oslira.ui.theme").String(); got != "dark" {
		t.Errorf("oslira.ui.theme = %q, want dark", got)
	}
}

func TestStoreDelete(t *testing.T) {
	store := prefs.NewStore(&prefs.MemStore{}, "oslira")
	if err := store.Set("ui.theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete("ui.theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.Get("ui.theme"); ok {
		t.Fatal("value still present after Delete")
	}
}

func TestStoreRejectsCorruptDocument(t *testing.T) {
	backend := &prefs.MemStore{}
	ctx := context.Background()
	if err := backend.Save(ctx, []byte("{not json")); err != nil {
		t.Fatalf("seeding backend: %v", err)
	}

	store := prefs.NewStore(backend, "oslira")
	if err := store.Load(ctx); !errors.Is(err, prefs.ErrCorruptDocument) {
		t.Fatalf("Load error = %v, want ErrCorruptDocument", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	fs := prefs.NewFileStore(path)
	ctx := context.Background()

	doc, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if string(doc) != "{}" {
		t.Fatalf("Load on missing file = %q, want empty document", doc)
	}

	if err := fs.Save(ctx, []byte(`{"oslira":{"ui":{"theme":"dark"}}}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc, err = fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := gjson.GetBytes(doc, "oslira.ui.theme").String(); got != "dark" {
		t.Errorf("persisted theme = %q, want dark", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "prefs.json" {
			t.Errorf("leftover file after save: %s", e.Name())
		}
	}
}

func TestBinderSeedsStateFromDocument(t *testing.T) {
	backend := &prefs.MemStore{}
	ctx := context.Background()
	seed := []byte(`{"oslira":{"ui":{"theme":"dark","sidebar":true}}}`)
	if err := backend.Save(ctx, seed); err != nil {
		t.Fatalf("seeding backend: %v", err)
	}

	st := state.NewManager()
	defer st.Close()
	st.Set("filters", map[string]any{"minScore": float64(50)})

	store := prefs.NewStore(backend, "oslira")
	binder := prefs.NewBinder(st, store, []string{"ui.theme", "ui.sidebar", "filters"})
	if err := binder.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer binder.Cleanup(ctx)

	if got := st.Get("ui.theme"); got != "dark" {
		t.Errorf("ui.theme = %v, want dark", got)
	}
	if got := st.Get("ui.sidebar"); got != true {
		t.Errorf("ui.sidebar = %v, want true", got)
	}
	// No persisted value for filters, so the existing state survives.
	if got := st.Get("filters.minScore"); got != float64(50) {
		t.Errorf("filters.minScore = %v, want 50", got)
	}
}

func TestBinderPersistsBoundChanges(t *testing.T) {
	backend := &prefs.MemStore{}
	ctx := context.Background()

	st := state.NewManager()
	defer st.Close()

	store := prefs.NewStore(backend, "oslira")
	binder := prefs.NewBinder(st, store, []string{"ui.theme"})
	if err := binder.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	st.Set("ui.theme", "light")
	st.Set("session.user", "ignored") // unbound path

	doc, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("backend.Load: %v", err)
	}
	if got := gjson.GetBytes(doc, "oslira.ui.theme").String(); got != "light" {
		t.Errorf("oslira.ui.theme = %q, want light", got)
	}
	if gjson.GetBytes(doc, "oslira.session").Exists() {
		t.Error("unbound path leaked into the preference document")
	}

	if err := binder.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	st.Set("ui.theme", "dark")

	doc, _ = backend.Load(ctx)
	if got := gjson.GetBytes(doc, "oslira.ui.theme").String(); got != "light" {
		t.Errorf("document changed after Cleanup: theme = %q, want light", got)
	}
}
