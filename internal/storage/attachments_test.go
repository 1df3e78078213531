package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAttachmentStoreSave(t *testing.T) {
	store := NewAttachmentStore(t.TempDir(), 1024)

	saved, err := store.Save(7, "setlist.txt", strings.NewReader("crowd favorites"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if !strings.HasPrefix(saved.Path, "7"+string(filepath.Separator)) {
		t.Fatalf("expected path keyed by ticket ID, got %q", saved.Path)
	}
	if saved.MimeType != "text/plain" {
		t.Fatalf("expected text/plain, got %q", saved.MimeType)
	}
	if saved.Size != int64(len("crowd favorites")) {
		t.Fatalf("expected size %d, got %d", len("crowd favorites"), saved.Size)
	}

	data, err := os.ReadFile(store.AbsPath(saved.Path))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "crowd favorites" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestAttachmentStoreRejectsUnsupportedType(t *testing.T) {
	store := NewAttachmentStore(t.TempDir(), 1024)

	_, err := store.Save(1, "malware.exe", strings.NewReader("nope"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestAttachmentStoreEnforcesSizeCap(t *testing.T) {
	root := t.TempDir()
	store := NewAttachmentStore(root, 10)

	_, err := store.Save(3, "big.log", strings.NewReader(strings.Repeat("x", 11)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// The partial file must be cleaned up
	entries, err := os.ReadDir(filepath.Join(root, "3"))
	if err != nil {
		t.Fatalf("read ticket dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial file to be removed, found %d entries", len(entries))
	}
}

func TestAttachmentStoreRemove(t *testing.T) {
	store := NewAttachmentStore(t.TempDir(), 1024)

	saved, err := store.Save(2, "photo.png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Remove(saved.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(store.AbsPath(saved.Path)); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone, stat err: %v", err)
	}
}
