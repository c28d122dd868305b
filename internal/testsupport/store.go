package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem creates a media item for tests using the provided store.
func NewItem(t testing.TB, store *library.Store, tenant, title, sourcePath string) *library.Item {
	t.Helper()

	item, err := store.Create(context.Background(), library.CreateParams{
		TenantID:   tenant,
		Title:      title,
		SourcePath: sourcePath,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return item
}
