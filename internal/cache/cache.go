// Package cache is the explicit render-result cache collaborator. Keys are
// deterministic hashes of the job parameters, so identical preview runs
// reuse previous work. The engine receives a Cache by reference; it is
// never ambient state.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/twmb/murmur3"
)

// Key is a deterministic digest of render-job parameters.
type Key string

// KeyFor hashes any JSON-serializable parameter set into a Key. Equal
// parameters always produce equal keys across runs and machines.
func KeyFor(params any) (Key, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("hash job parameters: %w", err)
	}
	h1, h2 := murmur3.Sum128(data)
	return Key(fmt.Sprintf("%016x%016x", h1, h2)), nil
}

// Cache stores and retrieves files under job-parameter keys.
type Cache interface {
	// Path returns where a named artifact for the key lives, creating the
	// key's directory.
	Path(key Key, filename string) (string, error)
	// Has reports whether the artifact already exists.
	Has(key Key, filename string) bool
}

// Dir is a directory-backed cache: one subdirectory per key.
type Dir struct {
	Root string
}

// NewDir creates a cache rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{Root: dir}
}

func (d *Dir) Path(key Key, filename string) (string, error) {
	sub := filepath.Join(d.Root, string(key))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(sub, filename), nil
}

func (d *Dir) Has(key Key, filename string) bool {
	info, err := os.Stat(filepath.Join(d.Root, string(key), filename))
	return err == nil && !info.IsDir()
}

// Store copies a finished artifact into the cache.
func (d *Dir) Store(key Key, filename, srcPath string) error {
	dst, err := d.Path(key, filename)
	if err != nil {
		return err
	}
	return copyFile(srcPath, dst)
}

// Clear removes the whole cache tree.
func (d *Dir) Clear() error {
	return os.RemoveAll(d.Root)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
