package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docreview/internal/models"
)

func newTestDisk(t *testing.T) *LocalDisk {
	t.Helper()
	disk, err := NewLocalDisk(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewLocalDisk() error = %v", err)
	}
	disk.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return disk
}

func TestLocalDisk_Save(t *testing.T) {
	disk := newTestDisk(t)

	ref, err := disk.Save("My Thesis.pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ref.Filename != "1700000000000-My_Thesis.pdf" {
		t.Errorf("Filename = %q, want %q", ref.Filename, "1700000000000-My_Thesis.pdf")
	}
	if ref.OriginalName != "My Thesis.pdf" {
		t.Errorf("OriginalName = %q, want the uploaded name", ref.OriginalName)
	}

	data, err := os.ReadFile(filepath.Join(disk.Dir(), ref.Filename))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "content" {
		t.Errorf("stored content = %q, want %q", data, "content")
	}
}

func TestLocalDisk_SaveSameNameSameMillisecond(t *testing.T) {
	disk := newTestDisk(t)

	first, err := disk.Save("a.pdf", strings.NewReader("1"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := disk.Save("a.pdf", strings.NewReader("2"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.Filename == second.Filename {
		t.Errorf("Save() reused key %q", first.Filename)
	}
}

func TestLocalDisk_PathTraversalName(t *testing.T) {
	disk := newTestDisk(t)

	ref, err := disk.Save("../../outside.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if strings.Contains(ref.Filename, "/") || strings.Contains(ref.Filename, "..") {
		t.Errorf("Filename = %q escapes the upload dir", ref.Filename)
	}
}

func TestLocalDisk_RemoveAndList(t *testing.T) {
	disk := newTestDisk(t)

	a, _ := disk.Save("a.pdf", strings.NewReader("a"))
	b, _ := disk.Save("b.pdf", strings.NewReader("b"))

	files, err := disk.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("List() count = %d, want 2", len(files))
	}

	if err := RemoveAll(disk, []models.AttachmentRef{a, b}); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if err := disk.Remove(a.Filename); err != nil {
		t.Errorf("Remove() of missing file error = %v, want nil", err)
	}

	files, _ = disk.List()
	if len(files) != 0 {
		t.Errorf("List() after remove = %d, want 0", len(files))
	}
}

func TestLocalDisk_RemoveRejectsPaths(t *testing.T) {
	disk := newTestDisk(t)

	for _, key := range []string{"", "..", "../x", "sub/file"} {
		if err := disk.Remove(key); err != ErrInvalidKey {
			t.Errorf("Remove(%q) error = %v, want %v", key, err, ErrInvalidKey)
		}
	}
}

func TestLocalDisk_Path(t *testing.T) {
	disk := newTestDisk(t)
	ref, err := disk.Save("notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path, err := disk.Path(ref.Filename)
	if err != nil {
		t.Fatalf("Path(%q) error = %v", ref.Filename, err)
	}
	if want := filepath.Join(disk.Dir(), ref.Filename); path != want {
		t.Errorf("Path() = %q, want %q", path, want)
	}

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"missing file", "1700000000000-gone.pdf", fs.ErrNotExist},
		{"parent escape", "../etc/passwd", ErrInvalidKey},
		{"nested path", "sub/file", ErrInvalidKey},
		{"empty", "", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := disk.Path(tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("Path(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
