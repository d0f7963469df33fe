package store

import (
	"context"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogStore struct {
	db *pgxpool.Pool
}

func NewCatalogStore(db *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{db: db}
}

// List returns every catalog item ordered by position, which defines the
// item IDs handed out in questions.
func (s *CatalogStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT difficulty, category, label, correct_answer
		 FROM catalog_items
		 ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var c domain.CatalogEntry
		if err := rows.Scan(&c.Difficulty, &c.Category, &c.Label, &c.CorrectAnswer); err != nil {
			return nil, err
		}
		entries = append(entries, c)
	}
	return entries, rows.Err()
}

// Replace swaps the whole catalog inside one transaction.
func (s *CatalogStore) Replace(ctx context.Context, entries []domain.CatalogEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_items`); err != nil {
		return err
	}
	for i, c := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO catalog_items (position, difficulty, category, label, correct_answer)
			 VALUES ($1, $2, $3, $4, $5)`,
			i, c.Difficulty, c.Category, c.Label, c.CorrectAnswer,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
