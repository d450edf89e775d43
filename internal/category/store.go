package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a category path does not exist.
var ErrNotFound = errors.New("category not found")

const entryColumns = `parent_path, name, full_path, position, seq, is_leaf, general_fee, mall_fee`

// Store reads the category tree persisted in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Children lists the direct children of parentPath in dataset order.
// The empty path lists the top level.
func (s *Store) Children(ctx context.Context, parentPath string) ([]Entry, error) {
	if parentPath != "" {
		parent, err := s.Get(ctx, parentPath)
		if err != nil {
			return nil, err
		}
		if parent.Leaf {
			return nil, fmt.Errorf("list children of leaf %q: %w", parentPath, ErrNotFound)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM category_nodes
		WHERE parent_path = ?
		ORDER BY position ASC, seq ASC
	`, parentPath)
	if err != nil {
		return nil, fmt.Errorf("query category children: %w", err)
	}
	return scanEntries(rows)
}

// Get loads one node by its full path.
func (s *Store) Get(ctx context.Context, fullPath string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM category_nodes
		WHERE full_path = ?
	`, fullPath)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("category %q: %w", fullPath, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query category %q: %w", fullPath, err)
	}
	return e, nil
}

// Search returns leaves whose name or full path contains term, case-insensitively,
// in dataset order. A non-positive limit returns every match.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Entry, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM category_nodes
		WHERE is_leaf = 1
			AND (instr(lower(name), ?) > 0 OR instr(lower(full_path), ?) > 0)
		ORDER BY seq ASC
		LIMIT ?
	`, needle, needle, limit)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	return scanEntries(rows)
}

// Count returns the number of stored nodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category_nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ParentPath, &e.Name, &e.FullPath, &e.Position, &e.Seq, &e.Leaf, &e.GeneralFee, &e.MallFee)
	return e, err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return entries, nil
}
