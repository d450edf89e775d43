package seed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/Simplici0/marketfee/internal/category"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
	Deletes int
	// Fingerprint identifies the dataset content that was applied.
	Fingerprint string
}

// RunFile seeds the category tree from a dataset file.
func RunFile(ctx context.Context, db *sql.DB, path string) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read category dataset: %w", err)
	}
	return Run(ctx, db, data)
}

// Run synchronises category_nodes with the dataset in one transaction.
// Running it again with the same data changes nothing.
func Run(ctx context.Context, db *sql.DB, data []byte) (Stats, error) {
	entries, err := category.ParseTree(data)
	if err != nil {
		return Stats{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{Fingerprint: Fingerprint(data)}
	keep := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		keep[e.FullPath] = struct{}{}
		if err := upsertNode(ctx, tx, e, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	if err := deleteMissing(ctx, tx, keep, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// Fingerprint returns a short content hash of a dataset.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func upsertNode(ctx context.Context, tx *sql.Tx, e category.Entry, stats *Stats) error {
	var current category.Entry
	err := tx.QueryRowContext(ctx, `
		SELECT parent_path, name, full_path, position, seq, is_leaf, general_fee, mall_fee
		FROM category_nodes
		WHERE full_path = ?
	`, e.FullPath).Scan(&current.ParentPath, &current.Name, &current.FullPath, &current.Position, &current.Seq, &current.Leaf, &current.GeneralFee, &current.MallFee)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO category_nodes (parent_path, name, full_path, position, seq, is_leaf, general_fee, mall_fee)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ParentPath, e.Name, e.FullPath, e.Position, e.Seq, e.Leaf, e.GeneralFee, e.MallFee); err != nil {
			return fmt.Errorf("insert category %q: %w", e.FullPath, err)
		}
		stats.Inserts++
		return nil
	case err != nil:
		return fmt.Errorf("check category %q: %w", e.FullPath, err)
	}

	if current == e {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE category_nodes
		SET position = ?, seq = ?, is_leaf = ?, general_fee = ?, mall_fee = ?
		WHERE full_path = ?
	`, e.Position, e.Seq, e.Leaf, e.GeneralFee, e.MallFee, e.FullPath); err != nil {
		return fmt.Errorf("update category %q: %w", e.FullPath, err)
	}
	stats.Updates++
	return nil
}

func deleteMissing(ctx context.Context, tx *sql.Tx, keep map[string]struct{}, stats *Stats) error {
	rows, err := tx.QueryContext(ctx, `SELECT full_path FROM category_nodes`)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return fmt.Errorf("scan category path: %w", err)
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate category paths: %w", err)
	}
	rows.Close()

	for _, path := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM category_nodes WHERE full_path = ?`, path); err != nil {
			return fmt.Errorf("delete category %q: %w", path, err)
		}
		stats.Deletes++
	}
	return nil
}
