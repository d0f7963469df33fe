package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
)

// FileCatalogStore reads the catalog from a JSON array of entries, in either
// object or [rank, pos, word, synonym] tuple form.
type FileCatalogStore struct {
	path string
}

func NewFileCatalogStore(path string) *FileCatalogStore {
	return &FileCatalogStore{path: path}
}

func (s *FileCatalogStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return entries, nil
}
