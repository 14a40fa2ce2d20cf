package storage

import (
	"context"
	"testing"

	"gorm.io/datatypes"
)

func TestMacroConfigStorage(t *testing.T) {
	store := newTestStorage(t).MacroConfigStorage()
	ctx := context.Background()

	raw, err := store.Get(ctx, "page", "m1")
	if err != nil || raw != nil {
		t.Fatalf("expected nil, nil for missing config, got %s, %v", raw, err)
	}
	if err = store.Set(ctx, "page", "m1", datatypes.JSON(`{"title":"a"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = store.Set(ctx, "page", "m1", datatypes.JSON(`{"title":"b"}`)); err != nil {
		t.Fatalf("unexpected error on upsert: %v", err)
	}
	if err = store.Set(ctx, "page", "m2", datatypes.JSON(`{"title":"c"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw, err = store.Get(ctx, "page", "m1"); err != nil || string(raw) != `{"title":"b"}` {
		t.Fatalf("expected updated config, got %s, %v", raw, err)
	}

	if err = store.Delete(ctx, "page", "m1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = store.Delete(ctx, "page", "m1"); err != nil {
		t.Fatalf("deleting a missing config must not fail: %v", err)
	}
	n, err := store.DeletePage(ctx, "page")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removed config, got %d, %v", n, err)
	}
}
