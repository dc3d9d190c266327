package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imageapi/pkg/domain"
)

func TestSaveGeneratesUniqueNamesAndKeepsExtension(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost:3555/")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	first, err := fs.Save(domain.CategoryUserProfile, "avatar.png", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := fs.Save(domain.CategoryUserProfile, "avatar.png", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	if first.Filename == second.Filename {
		t.Fatalf("expected unique filenames, both were %q", first.Filename)
	}
	if !strings.HasSuffix(first.Filename, ".png") {
		t.Fatalf("expected .png extension, got %q", first.Filename)
	}
	if want := "http://localhost:3555/user_profile_pics/" + first.Filename; first.URL != want {
		t.Fatalf("url = %q, want %q", first.URL, want)
	}
	data, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "one" {
		t.Fatalf("stored content = %q, want %q", data, "one")
	}
}

func TestSaveSanitizesOriginalFilename(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	stored, err := fs.Save(domain.CategoryBusinessGallery, "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if strings.Contains(stored.Filename, "/") || strings.Contains(stored.Filename, "..") {
		t.Fatalf("filename not sanitized: %q", stored.Filename)
	}
	if filepath.Dir(stored.Path) != fs.Dir(domain.CategoryBusinessGallery) {
		t.Fatalf("file written outside category dir: %q", stored.Path)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	stored, err := fs.Save(domain.CategoryBusinessProfile, "logo.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Remove(domain.CategoryBusinessProfile, stored.Filename); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(stored.Path); !os.IsNotExist(err) {
		t.Fatalf("file still present after remove")
	}
	// Second remove of the same name must not fail.
	if err := fs.Remove(domain.CategoryBusinessProfile, stored.Filename); err != nil {
		t.Fatalf("remove missing file: %v", err)
	}
}

func TestNewFileStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileStore("  ", "http://localhost"); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
