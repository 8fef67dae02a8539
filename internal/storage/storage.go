// Package storage keeps uploaded attachment files. The rest of the system only
// sees the opaque filename returned by Save.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"docreview/internal/models"
	"docreview/internal/validation"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// Store saves and removes attachment files.
type Store interface {
	Save(originalName string, r io.Reader) (models.AttachmentRef, error)
	Remove(filename string) error
	List() ([]File, error)
	Path(filename string) (string, error)
}

// File describes a stored file.
type File struct {
	Name    string
	ModTime time.Time
}

// LocalDisk stores files in a single directory.
type LocalDisk struct {
	dir string
	now func() time.Time
}

// NewLocalDisk creates the directory if needed and returns a store rooted there.
func NewLocalDisk(dir string) (*LocalDisk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalDisk{dir: dir, now: time.Now}, nil
}

// Dir returns the storage root.
func (l *LocalDisk) Dir() string {
	return l.dir
}

// Save writes r under a new key of the form "<unix-ms>-<sanitized name>".
func (l *LocalDisk) Save(originalName string, r io.Reader) (models.AttachmentRef, error) {
	safe := validation.SanitizeFilename(originalName)
	ms := l.now().UnixMilli()

	var (
		f    *os.File
		name string
		err  error
	)
	for i := 0; i < 100; i++ {
		name = strconv.FormatInt(ms, 10) + "-" + safe
		if i > 0 {
			name = strconv.FormatInt(ms, 10) + "-" + strconv.Itoa(i) + "-" + safe
		}
		f, err = os.OpenFile(filepath.Join(l.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return models.AttachmentRef{}, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return models.AttachmentRef{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return models.AttachmentRef{}, fmt.Errorf("failed to close file: %w", err)
	}

	return models.AttachmentRef{Filename: name, OriginalName: originalName}, nil
}

func validKey(filename string) bool {
	return filename != "" && filepath.Base(filename) == filename && filename != "." && filename != ".."
}

// Path returns the on-disk location of a stored file. It returns an error
// wrapping fs.ErrNotExist when no such file is stored.
func (l *LocalDisk) Path(filename string) (string, error) {
	if !validKey(filename) {
		return "", ErrInvalidKey
	}
	path := filepath.Join(l.Dir(), filename)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", filename, fs.ErrNotExist)
	}
	return path, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (l *LocalDisk) Remove(filename string) error {
	if !validKey(filename) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(l.dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List returns every regular file in the storage root.
func (l *LocalDisk) List() ([]File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{Name: e.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}

// RemoveAll deletes each ref's file, returning the first error encountered.
func RemoveAll(s Store, refs []models.AttachmentRef) error {
	var first error
	for _, ref := range refs {
		if err := s.Remove(ref.Filename); err != nil && first == nil {
			first = err
		}
	}
	return first
}
