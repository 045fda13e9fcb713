package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/newsprobe/internal/storage"
	"github.com/FranksOps/newsprobe/internal/storage/storagetest"
)

func TestSQLiteBackend(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "newsprobe.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	now := time.Now().Truncate(time.Millisecond).UTC()
	storagetest.RunBackendTests(t, b, now)
}

func TestSQLiteBackend_DuplicateID(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "newsprobe.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	rec := &storage.SearchRecord{ID: "dup", Terms: "x", CreatedAt: time.Now().UTC()}
	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}
	if err := b.Save(ctx, rec); err == nil {
		t.Errorf("Expected primary key violation on duplicate id")
	}
}
