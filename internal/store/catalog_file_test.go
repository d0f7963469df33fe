package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Harshitk-cp/vocabtest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog_TupleForm(t *testing.T) {
	data := []byte(`[[12, "noun", "house", "home"], [3400.5, "verb", "amble", "stroll"]]`)

	got, err := ParseCatalog(data)
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogEntry{
		{Difficulty: 12, Category: "noun", Label: "house", CorrectAnswer: "home"},
		{Difficulty: 3400.5, Category: "verb", Label: "amble", CorrectAnswer: "stroll"},
	}, got)
}

func TestParseCatalog_ObjectForm(t *testing.T) {
	data := []byte(`[{"difficulty": 50, "category": "adj", "label": "big", "correct_answer": "large"}]`)

	got, err := ParseCatalog(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CatalogEntry{Difficulty: 50, Category: "adj", Label: "big", CorrectAnswer: "large"}, got[0])
}

func TestParseCatalog_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"short tuple", `[[1, "noun", "house"]]`},
		{"non-numeric rank", `[["one", "noun", "house", "home"]]`},
		{"not an array", `{"difficulty": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestFileCatalogStore_List(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[1, "noun", "cat", "feline"]]`), 0o600))

	got, err := NewFileCatalogStore(path).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cat", got[0].Label)

	_, err = NewFileCatalogStore(filepath.Join(t.TempDir(), "missing.json")).List(context.Background())
	assert.Error(t, err)
}
