package blob

import (
	"context"
	"testing"
)

func TestLocalFS_ImplementsStore(t *testing.T) {
	var _ Store = (*LocalFS)(nil)
}

func TestLocalFS_PutGet(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()

	data := []byte("day,close\n2024-01-02,104\n")
	if err := fs.Put(ctx, "runs/abc/daily.csv", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := fs.Get(ctx, "runs/abc/daily.csv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	ok, _ := fs.Exists(ctx, "missing.csv")
	if ok {
		t.Error("expected false for missing key")
	}

	fs.Put(ctx, "present.csv", []byte("x"))
	ok, _ = fs.Exists(ctx, "present.csv")
	if !ok {
		t.Error("expected true for stored key")
	}
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Put(ctx, "runs/a/daily.csv", []byte("1"))
	fs.Put(ctx, "runs/a/trades.csv", []byte("2"))
	fs.Put(ctx, "runs/b/daily.csv", []byte("3"))

	keys, err := fs.List(ctx, "runs/a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %d: %v", len(keys), keys)
	}

	keys, _ = fs.List(ctx, "runs/missing")
	if len(keys) != 0 {
		t.Errorf("expected empty list for missing prefix, got %v", keys)
	}
}

func TestLocalFS_Remove(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Put(ctx, "gone.csv", []byte("x"))
	fs.Remove(ctx, "gone.csv")

	ok, _ := fs.Exists(ctx, "gone.csv")
	if ok {
		t.Error("key should be removed")
	}
}
