package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/marketfee/internal/db"
	"github.com/Simplici0/marketfee/internal/migrations"
)

const dataset = `[
  {
    "Women": {
      "Tops": {
        "T-Shirts": {"general_seller_fee": "6%", "mall_seller_fee": "7.5%"}
      },
      "Dresses": {"general_seller_fee": "5.5%", "mall_seller_fee": "7%"}
    }
  },
  {
    "Computers": {
      "Laptops": {"general_seller_fee": "4.5%", "mall_seller_fee": "5%"}
    }
  }
]`

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(ctx, database, nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	database := openMigrated(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database, []byte(dataset))
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 6 {
				t.Fatalf("expected 6 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Updates != 0 || stats.Deletes != 0 {
			t.Fatalf("expected no changes in iteration %d, got %+v", i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM category_nodes`, nil, 6)
	assertCount(t, database, `SELECT COUNT(*) FROM category_nodes WHERE is_leaf = 1`, nil, 3)
	assertCount(t, database, `SELECT COUNT(*) FROM category_nodes WHERE full_path = ?`, "Women > Tops > T-Shirts", 1)
}

func TestRunAppliesChangedDataset(t *testing.T) {
	database := openMigrated(t)
	ctx := context.Background()

	first, err := Run(ctx, database, []byte(dataset))
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}

	changed := `{
  "Women": {
    "Dresses": {"general_seller_fee": "6%", "mall_seller_fee": "7%"}
  },
  "Pets": {
    "Food": {"general_seller_fee": "5%", "mall_seller_fee": "6%"}
  }
}`
	stats, err := Run(ctx, database, []byte(changed))
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}

	if stats.Inserts != 2 {
		t.Fatalf("inserts = %d, want 2", stats.Inserts)
	}
	// Dresses changes fee and position.
	if stats.Updates != 1 {
		t.Fatalf("updates = %d, want 1", stats.Updates)
	}
	if stats.Deletes != 4 {
		t.Fatalf("deletes = %d, want 4", stats.Deletes)
	}
	if stats.Fingerprint == first.Fingerprint {
		t.Fatalf("expected fingerprint to change")
	}

	var fee string
	if err := database.QueryRow(`SELECT general_fee FROM category_nodes WHERE full_path = ?`, "Women > Dresses").Scan(&fee); err != nil {
		t.Fatalf("query dresses: %v", err)
	}
	if fee != "6%" {
		t.Fatalf("dresses fee = %q, want 6%%", fee)
	}
}

func TestRunRejectsMalformedDataset(t *testing.T) {
	database := openMigrated(t)

	if _, err := Run(context.Background(), database, []byte(`{"broken": [`)); err == nil {
		t.Fatalf("expected parse error")
	}
	assertCount(t, database, `SELECT COUNT(*) FROM category_nodes`, nil, 0)
}

func TestRunFileMissing(t *testing.T) {
	database := openMigrated(t)

	if _, err := RunFile(context.Background(), database, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing dataset file")
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("count mismatch for %q: got %d want %d", query, count, expected)
	}
}
