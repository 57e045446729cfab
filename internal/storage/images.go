package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ImageExt is the extension given to every stored image.
const ImageExt = ".png"

// ImageStore writes downloaded image files into a single flat directory.
// The directory is created on first use and reused afterwards.
type ImageStore struct {
	mu      sync.Mutex
	baseDir string
	ensured bool

	// mkdirs counts directory creations; exposed for tests through Created.
	mkdirs int
}

// NewImageStore creates an ImageStore rooted at baseDir. Nothing is touched on disk yet.
func NewImageStore(baseDir string) *ImageStore {
	return &ImageStore{baseDir: baseDir}
}

// Dir returns the output directory.
func (s *ImageStore) Dir() string { return s.baseDir }

// Path returns the destination path for a file id.
func (s *ImageStore) Path(fileID string) string {
	return filepath.Join(s.baseDir, fileID+ImageExt)
}

// Created reports how many times the output directory had to be created.
func (s *ImageStore) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mkdirs
}

func (s *ImageStore) ensureDir() error {
	if s.ensured {
		return nil
	}
	if _, err := os.Stat(s.baseDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat image dir: %w", err)
		}
		if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
			return fmt.Errorf("create image dir: %w", err)
		}
		s.mkdirs++
	}
	s.ensured = true
	return nil
}

// Save atomically writes content as <fileID>.png using a temp file + rename,
// overwriting any previous file with the same id. It returns the file name.
func (s *ImageStore) Save(fileID string, content []byte) (string, error) {
	if fileID == "" || filepath.Base(fileID) != fileID {
		return "", fmt.Errorf("invalid image file id %q", fileID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return "", err
	}

	path := s.Path(fileID)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s tmp: %w", fileID, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", fileID, err)
	}

	return fileID + ImageExt, nil
}
