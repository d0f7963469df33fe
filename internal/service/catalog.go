package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"go.uber.org/zap"
)

var ErrCatalogEmpty = errors.New("catalog is empty")

// CatalogService loads the catalog once and shares a Selector built over it.
// A failed load is retried on the next call.
type CatalogService struct {
	store  domain.CatalogStore
	logger *zap.Logger

	mu       sync.Mutex
	selector *Selector
}

func NewCatalogService(store domain.CatalogStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

func (s *CatalogService) Selector(ctx context.Context) (*Selector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selector != nil {
		return s.selector, nil
	}

	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrCatalogEmpty
	}

	s.selector = NewSelector(entries)
	s.logger.Info("catalog loaded", zap.Int("items", len(entries)))
	return s.selector, nil
}
