package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/utils"
)

// BundleStore persists book bundles as one JSON document per book under
// a directory, keyed by sanitized title. Every save is a whole-file
// rewrite; no incremental durability is implied.
type BundleStore struct {
	dir string
}

func NewBundleStore(dir string) *BundleStore {
	return &BundleStore{dir: dir}
}

func (s *BundleStore) Dir() string {
	return s.dir
}

// Path returns the on-disk location for a bundle with the given title.
func (s *BundleStore) Path(title string) string {
	return filepath.Join(s.dir, utils.SanitizeFilename(title)+".json")
}

// Save writes the bundle to its JSON file, creating the storage
// directory if needed. Returns the written path.
func (s *BundleStore) Save(bundle *entities.BookBundle) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal bundle %q: %w", bundle.Metadata.Title, err)
	}

	path := s.Path(bundle.Metadata.Title)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write bundle file: %w", err)
	}

	return path, nil
}

// Remove deletes the persisted file for a title. A missing file is not
// an error.
func (s *BundleStore) Remove(title string) error {
	if err := os.Remove(s.Path(title)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove bundle file: %w", err)
	}
	return nil
}

// LoadAll reads every bundle file in the directory. Loading is
// best-effort: a file that cannot be read or decoded is reported in the
// returned error slice and does not stop the rest from loading.
func (s *BundleStore) LoadAll() ([]*entities.BookBundle, []error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf("failed to read storage directory: %w", err)}
	}

	var bundles []*entities.BookBundle
	var errs []error

	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", entry.Name(), err))
			continue
		}

		var bundle entities.BookBundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			errs = append(errs, fmt.Errorf("failed to decode %s: %w", entry.Name(), err))
			continue
		}

		bundles = append(bundles, &bundle)
	}

	return bundles, errs
}
