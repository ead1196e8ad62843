package itembank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SQLBank serves items from the items table created by db.Open.
type SQLBank struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLBank(db *sql.DB, driver string) *SQLBank {
	return &SQLBank{db: db, driver: driver}
}

// Import upserts items in a single transaction.
func (s *SQLBank) Import(ctx context.Context, items []Item) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBankUnavailable, err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, it := range items {
		oj, err := json.Marshal(it.Options)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO items (id,category,subcategory,difficulty,stem,options_json,correct_index,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET category=EXCLUDED.category, subcategory=EXCLUDED.subcategory,
				difficulty=EXCLUDED.difficulty, stem=EXCLUDED.stem, options_json=EXCLUDED.options_json,
				correct_index=EXCLUDED.correct_index`,
			it.ID, it.Category, it.Subcategory, string(it.Difficulty), it.Stem, string(oj), it.CorrectOptionIndex, now)
		if err != nil {
			return fmt.Errorf("%w: insert %s: %v", ErrBankUnavailable, it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrBankUnavailable, err)
	}
	return nil
}

func (s *SQLBank) FetchCandidates(ctx context.Context, categories []string, difficulty Difficulty, exclude map[string]struct{}) ([]Item, error) {
	var (
		where []string
		args  []any
	)
	if len(categories) > 0 {
		ph := make([]string, len(categories))
		for i, c := range categories {
			args = append(args, c)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "category IN ("+strings.Join(ph, ",")+")")
	}
	if difficulty != DifficultyAny {
		args = append(args, string(difficulty))
		where = append(where, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	q := `SELECT id,category,subcategory,difficulty,stem,options_json,correct_index FROM items`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankUnavailable, err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var (
			it    Item
			diff  string
			ojson string
		)
		if err := rows.Scan(&it.ID, &it.Category, &it.Subcategory, &diff, &it.Stem, &ojson, &it.CorrectOptionIndex); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBankUnavailable, err)
		}
		if _, skip := exclude[it.ID]; skip {
			continue
		}
		it.Difficulty = Difficulty(diff)
		if err := json.Unmarshal([]byte(ojson), &it.Options); err != nil {
			return nil, fmt.Errorf("itembank: item %s options: %w", it.ID, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankUnavailable, err)
	}
	return out, nil
}

func (s *SQLBank) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM items ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankUnavailable, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBankUnavailable, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
