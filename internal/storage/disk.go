// Package storage provides the media object store backing uploaded images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"artfeed/internal/validation"
)

// MediaStore is the contract consumed by the post service. Save must
// guarantee a collision-free stored reference distinct from the suggested
// name; Delete removes the backing object.
type MediaStore interface {
	Save(ctx context.Context, r io.Reader, suggestedName string) (string, error)
	Delete(ctx context.Context, ref string) error
	Path(ref string) (string, error)
}

// DiskStore stores media objects as files under a single directory.
// References are the bare stored filenames.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if missing and returns a store
// rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the object under a timestamp-prefixed, sanitized filename.
// The microsecond UTC prefix avoids collisions between uploads sharing a
// name; O_EXCL plus a clock re-read covers the same-microsecond race.
func (s *DiskStore) Save(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	name := validation.SanitizeFilename(suggestedName)
	if name == "" {
		name = "upload"
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		ref := timestampPrefix(time.Now().UTC()) + "_" + name
		f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create media file: %w", err)
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(filepath.Join(s.dir, ref))
			return "", fmt.Errorf("write media file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(filepath.Join(s.dir, ref))
			return "", fmt.Errorf("close media file: %w", err)
		}
		return ref, nil
	}
}

// Delete removes the stored object. An already-absent ref counts as deleted
// so a repeated cleanup never reports a false orphan.
func (s *DiskStore) Delete(_ context.Context, ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// Path resolves a stored reference to its absolute location, rejecting
// anything that would escape the store directory.
func (s *DiskStore) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("invalid media reference %q", ref)
	}
	return filepath.Join(s.dir, ref), nil
}

// timestampPrefix renders t as a 20-digit UTC stamp with microsecond
// resolution (yyyymmddhhmmssuuuuuu).
func timestampPrefix(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}
