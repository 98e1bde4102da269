package output

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FS is the local-disk implementation of core.Staging.
type FS struct{}

// MkdirAll creates dir and any missing parents.
func (FS) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Exists reports whether path exists.
func (FS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path is a directory.
func (FS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteFile writes data to path, removing the partial file on failure.
func (FS) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// CopyFile copies the regular file src to dst, removing dst on failure.
func (FS) CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// ReadDir lists the regular files in dir, sorted by name.
func (FS) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Glob returns the sorted paths matching pattern.
func (FS) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Open opens path for reading.
func (FS) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Create creates or truncates path for writing.
func (FS) Create(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// Remove deletes a single file.
func (FS) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll deletes dir recursively.
func (FS) RemoveAll(dir string) error {
	return os.RemoveAll(dir)
}

// Chmod changes the mode of path.
func (FS) Chmod(path string, mode fs.FileMode) error {
	return os.Chmod(path, mode)
}
