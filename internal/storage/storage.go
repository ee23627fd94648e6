// Package storage provides the blob store for photo assets. Assets are
// addressed by relative path strings under a single root directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is the interface the pipeline persists assets through.
type Store interface {
	// Write stores data at the given relative path, creating parent
	// directories as needed.
	Write(rel string, data []byte) error

	// Read returns the full contents of the asset at the relative path.
	Read(rel string) ([]byte, error)

	// Delete removes the asset. Deleting a missing asset is not an error.
	Delete(rel string) error

	// Exists reports whether an asset is present at the relative path.
	Exists(rel string) bool

	// AbsolutePath resolves a relative path to an absolute filesystem path.
	AbsolutePath(rel string) string

	// MakeDirectory creates the directory at the relative path. Idempotent.
	MakeDirectory(rel string) error
}

// ErrInvalidPath is returned for absolute or traversal-escaping paths.
var ErrInvalidPath = errors.New("invalid storage path")

// Disk is a local-filesystem Store rooted at a single directory.
type Disk struct {
	root string
}

// NewDisk creates a Disk store rooted at root, creating it if absent.
func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Disk{root: abs}, nil
}

func (d *Disk) resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(d.root, clean), nil
}

func (d *Disk) Write(rel string, data []byte) error {
	path, err := d.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create asset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write asset %s: %w", rel, err)
	}
	return nil
}

func (d *Disk) Read(rel string) ([]byte, error) {
	path, err := d.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", rel, err)
	}
	return data, nil
}

func (d *Disk) Delete(rel string) error {
	path, err := d.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete asset %s: %w", rel, err)
	}
	return nil
}

func (d *Disk) Exists(rel string) bool {
	path, err := d.resolve(rel)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

func (d *Disk) AbsolutePath(rel string) string {
	path, err := d.resolve(rel)
	if err != nil {
		return ""
	}
	return path
}

func (d *Disk) MakeDirectory(rel string) error {
	path, err := d.resolve(rel)
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0o750)
}
