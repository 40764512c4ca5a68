package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one snapshot per file, encoded with Codec. Saves replace the
// file atomically by writing a temp file in the same directory and renaming it
// over the target.
type FileStore[T any] struct {
	Codec Codec[T]
	// Perm is applied to newly written files. Zero means 0o644.
	Perm os.FileMode
}

func NewFileStore[T any](codec Codec[T]) *FileStore[T] {
	return &FileStore[T]{Codec: codec}
}

func (s *FileStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	path, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	snapshot, err := s.Codec.Decode(data)
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("decode %s: %w", path, err)
	}

	meta := Meta{ETag: contentTag(data)}
	if info, statErr := os.Stat(path); statErr == nil {
		meta.UpdatedAt = info.ModTime().UTC()
	}
	return snapshot, meta, true, nil
}

func (s *FileStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	path, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	data, err := s.Codec.Encode(snapshot)
	if err != nil {
		return Meta{}, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := writeFileAtomic(path, data, s.perm()); err != nil {
		return Meta{}, fmt.Errorf("%w: %w", ErrIO, err)
	}

	saved := cloneMeta(meta)
	saved.ETag = contentTag(data)
	return saved, nil
}

func (s *FileStore[T]) perm() os.FileMode {
	if s.Perm == 0 {
		return 0o644
	}
	return s.Perm
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmp, err := os.CreateTemp(dir, base+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func contentTag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
