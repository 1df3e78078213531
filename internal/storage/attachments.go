// Package storage persists support ticket attachments on the local
// filesystem, keyed by ticket ID.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType means the file extension is not on the allow-list
	ErrUnsupportedType = errors.New("unsupported attachment type")
	// ErrTooLarge means the file exceeds the configured size cap
	ErrTooLarge = errors.New("attachment exceeds size limit")
)

// Extension allow-list with the MIME type recorded for each
var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".log":  "text/plain",
	".csv":  "text/csv",
	".zip":  "application/zip",
}

// SavedFile describes a stored attachment
type SavedFile struct {
	Path     string // Relative to the store root
	MimeType string
	Size     int64
}

// AttachmentStore writes attachments under <root>/<ticket_id>/<uuid><ext>
type AttachmentStore struct {
	root     string
	maxBytes int64
}

// NewAttachmentStore creates a store rooted at dir with the given size cap
func NewAttachmentStore(dir string, maxBytes int64) *AttachmentStore {
	return &AttachmentStore{root: dir, maxBytes: maxBytes}
}

// Save validates and persists one attachment. Partial files are removed
// on any failure.
func (s *AttachmentStore) Save(ticketID uint, fileName string, r io.Reader) (*SavedFile, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	mimeType, ok := allowedExtensions[ext]
	if !ok {
		return nil, ErrUnsupportedType
	}

	dir := filepath.Join(s.root, fmt.Sprintf("%d", ticketID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}

	rel := filepath.Join(fmt.Sprintf("%d", ticketID), uuid.New().String()+ext)
	dst := filepath.Join(s.root, rel)

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create attachment file: %w", err)
	}

	// Read one byte past the cap so oversized uploads are detected
	// without buffering the whole file
	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("write attachment: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(dst)
		return nil, ErrTooLarge
	}

	return &SavedFile{Path: rel, MimeType: mimeType, Size: written}, nil
}

// AbsPath resolves a stored relative path against the store root
func (s *AttachmentStore) AbsPath(rel string) string {
	return filepath.Join(s.root, rel)
}

// Remove deletes a stored attachment
func (s *AttachmentStore) Remove(rel string) error {
	return os.Remove(filepath.Join(s.root, rel))
}
