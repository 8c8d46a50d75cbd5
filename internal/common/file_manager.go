package common

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const (
	// DirPermissions is used for every directory the tool creates
	DirPermissions fs.FileMode = 0755
	// FilePermissions is used for every file the tool writes
	FilePermissions fs.FileMode = 0644
)

// AtomicWriteOptions configures WriteAtomic
type AtomicWriteOptions struct {
	// Verify is called with the path of the fully written temp file before it is
	// renamed into place. A non-nil error aborts the write.
	Verify func(tmpPath string) error
	// RequireNonEmpty rejects zero-byte payloads
	RequireNonEmpty bool
}

// FileManager provides high-level file operations with standardized error handling and logging
type FileManager struct {
	logger zerolog.Logger
}

// NewFileManager creates a new FileManager instance
func NewFileManager(logger zerolog.Logger) *FileManager {
	return &FileManager{
		logger: logger.With().Str("component", "FileManager").Logger(),
	}
}

// FileExists checks if a regular file exists at path
func (fm *FileManager) FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// EnsureDirectory creates a directory and its parents if they don't exist
func (fm *FileManager) EnsureDirectory(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return NewValidationError("path", path, "exists but is not a directory")
		}
		return nil
	}

	if err := os.MkdirAll(path, DirPermissions); err != nil {
		return WrapError(err, "failed to create directory: "+path)
	}

	fm.logger.Debug().Str("path", path).Msg("Created directory")
	return nil
}

// ReadFile reads a whole file, refusing files larger than maxSize (0 = no limit)
func (fm *FileManager) ReadFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, WrapError(err, "failed to stat file: "+path)
	}
	if info.IsDir() {
		return nil, NewValidationError("path", path, "is a directory")
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, NewValidationError("path", path, fmt.Sprintf("file size %d exceeds limit %d", info.Size(), maxSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, "failed to read file: "+path)
	}
	return data, nil
}

// WriteAtomic streams r into a temp file next to path and renames it over path
// once the content is completely written and synced. On any failure the temp
// file is removed and an existing file at path is left untouched.
func (fm *FileManager) WriteAtomic(path string, r io.Reader, opts AtomicWriteOptions) (written int64, err error) {
	dir := filepath.Dir(path)
	if err := fm.EnsureDirectory(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, WrapError(err, "failed to create temp file in "+dir)
	}
	tmpPath := tmp.Name()

	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				fm.logger.Warn().Err(rmErr).Str("path", tmpPath).Msg("Failed to remove temp file")
			}
		}
	}()

	written, err = io.Copy(tmp, r)
	if err != nil {
		return written, WrapError(err, "failed to write "+path)
	}
	if opts.RequireNonEmpty && written == 0 {
		err = NewValidationError("content", path, "empty payload")
		return 0, err
	}
	if err = tmp.Sync(); err != nil {
		return written, WrapError(err, "failed to sync "+tmpPath)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return written, WrapError(err, "failed to close "+tmpPath)
	}
	if err = os.Chmod(tmpPath, FilePermissions); err != nil {
		return written, WrapError(err, "failed to chmod "+tmpPath)
	}

	if opts.Verify != nil {
		if err = opts.Verify(tmpPath); err != nil {
			return written, err
		}
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return written, WrapError(err, "failed to move "+tmpPath+" into place")
	}

	fm.logger.Debug().Str("path", path).Int64("bytes", written).Msg("File written")
	return written, nil
}

// WriteBytesAtomic is WriteAtomic for an in-memory payload
func (fm *FileManager) WriteBytesAtomic(path string, data []byte) error {
	_, err := fm.WriteAtomic(path, bytes.NewReader(data), AtomicWriteOptions{})
	return err
}
