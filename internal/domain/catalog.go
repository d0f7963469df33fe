package domain

import (
	"encoding/json"
	"fmt"
)

// CatalogEntry is one graded vocabulary item. Difficulty is the word's
// frequency rank; higher is harder.
type CatalogEntry struct {
	Difficulty    float64 `json:"difficulty"`
	Category      string  `json:"category"`
	Label         string  `json:"label"`
	CorrectAnswer string  `json:"correct_answer"`
}

// UnmarshalJSON accepts either the object form or the compact tuple form
// [rank, part_of_speech, word, synonym] used by exported word lists.
func (c *CatalogEntry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		if len(tuple) != 4 {
			return fmt.Errorf("catalog tuple has %d fields, want 4", len(tuple))
		}
		if err := json.Unmarshal(tuple[0], &c.Difficulty); err != nil {
			return fmt.Errorf("catalog difficulty: %w", err)
		}
		if err := json.Unmarshal(tuple[1], &c.Category); err != nil {
			return fmt.Errorf("catalog category: %w", err)
		}
		if err := json.Unmarshal(tuple[2], &c.Label); err != nil {
			return fmt.Errorf("catalog label: %w", err)
		}
		if err := json.Unmarshal(tuple[3], &c.CorrectAnswer); err != nil {
			return fmt.Errorf("catalog answer: %w", err)
		}
		return nil
	}

	type plain CatalogEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CatalogEntry(p)
	return nil
}

// Question is what a test-taker is shown. ID is the catalog index.
type Question struct {
	ID            int        `json:"id"`
	Label         string     `json:"label"`
	Category      string     `json:"category"`
	CorrectAnswer string     `json:"correct_answer"`
	// Distractors holds up to three wrong answers from the same category.
	// It is shorter when the category has too few other entries.
	Distractors   []string   `json:"distractors"`
	Bounds        [3]float64 `json:"bounds"`
}

// Response answers the question with the same ID.
type Response struct {
	ID     int  `json:"id"`
	Result bool `json:"result"`
}
