package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"imageapi/pkg/domain"
)

// FileStore saves uploaded images to disk under per-category directories.
type FileStore struct {
	basePath string
	baseURL  string
}

// StoredFile describes a file written by Save.
type StoredFile struct {
	Filename string
	Path     string
	URL      string
}

// NewFileStore creates the category directories if missing. baseURL is the
// externally reachable prefix stored files are served under.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	for _, cat := range domain.Categories() {
		if err := os.MkdirAll(filepath.Join(basePath, cat.Dir()), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &FileStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the stream under the category directory with a generated name:
// nanosecond timestamp plus a random UUID, keeping the original extension.
// The file is opened with O_EXCL so an existing file is never overwritten.
func (f *FileStore) Save(cat domain.Category, originalFilename string, r io.Reader) (StoredFile, error) {
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString(), safeExt(originalFilename))
	target := filepath.Join(f.basePath, cat.Dir(), name)

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		os.Remove(target)
		return StoredFile{}, fmt.Errorf("write file: %w", err)
	}
	return StoredFile{
		Filename: name,
		Path:     target,
		URL:      f.baseURL + "/" + cat.Dir() + "/" + name,
	}, nil
}

// Remove deletes a stored file. A file that is already gone is treated as
// removed, not as an error.
func (f *FileStore) Remove(cat domain.Category, filename string) error {
	filename = filepath.Base(filename)
	if filename == "" || filename == "." {
		return nil
	}
	if err := os.Remove(filepath.Join(f.basePath, cat.Dir(), filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Dir returns the directory the category's files live in, for static serving.
func (f *FileStore) Dir(cat domain.Category) string {
	return filepath.Join(f.basePath, cat.Dir())
}

func safeExt(name string) string {
	return filepath.Ext(filepath.Base(strings.TrimSpace(name)))
}
