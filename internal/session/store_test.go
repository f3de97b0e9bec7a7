package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_PathFor(t *testing.T) {
	store := NewStore("/var/lib/relay/auth")

	path, err := store.PathFor("abc123")
	if err != nil {
		t.Fatalf("PathFor() error = %v", err)
	}
	want := filepath.Join("/var/lib/relay/auth", "abc123")
	if path != want {
		t.Errorf("PathFor() = %q, want %q", path, want)
	}
}

func TestStore_PathFor_RejectsUnsafeIDs(t *testing.T) {
	store := NewStore(t.TempDir())

	tests := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "path traversal", id: "../../etc"},
		{name: "separator", id: "a/b"},
		{name: "dot", id: "a.b"},
		{name: "space", id: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.PathFor(tt.id)
			if !errors.Is(err, ErrInvalidSession) {
				t.Errorf("PathFor(%q) error = %v, want ErrInvalidSession", tt.id, err)
			}
		})
	}
}

func TestStore_ExistsAfterEnsureCreated(t *testing.T) {
	store := NewStore(t.TempDir())
	id := NewToken()

	if store.Exists(id) {
		t.Fatal("Exists() = true before EnsureCreated")
	}

	if err := store.EnsureCreated(id); err != nil {
		t.Fatalf("EnsureCreated() error = %v", err)
	}

	if !store.Exists(id) {
		t.Error("Exists() = false after EnsureCreated")
	}
}

func TestStore_ExistsIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	// A plain file where the directory should be is not a credential record.
	if err := os.WriteFile(filepath.Join(root, "notadir"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if store.Exists("notadir") {
		t.Error("Exists() = true for a plain file")
	}
}

func TestStore_EnsureCreated_InvalidID(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.EnsureCreated("../escape"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("EnsureCreated() error = %v, want ErrInvalidSession", err)
	}
}
