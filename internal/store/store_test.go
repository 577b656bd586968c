package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newMemStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrate_AppliesOnce(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	calls := 0
	migrations := []Migration{{
		Version:     1,
		Description: "create widgets",
		Up: func(tx *sql.Tx) error {
			calls++
			_, err := tx.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY)")
			return err
		},
	}}

	if err := s.Migrate(ctx, "widgets", migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Migrate(ctx, "widgets", migrations); err != nil {
		t.Fatalf("Migrate (second): %v", err)
	}
	if calls != 1 {
		t.Errorf("Up called %d times, want 1", calls)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM _migrations WHERE component = 'widgets'").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("_migrations rows = %d, want 1", n)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Migrate(ctx, "broken", []Migration{{
		Version:     1,
		Description: "half applied",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec("CREATE TABLE half (id INTEGER)"); err != nil {
				return err
			}
			return boom
		},
	}})
	if !errors.Is(err, boom) {
		t.Fatalf("Migrate error = %v, want wrapping boom", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'half'").Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 0 {
		t.Error("table from failed migration still exists")
	}
}

func TestTx_RollbackOnError(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	if _, err := s.DB().Exec("CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("stop")
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Tx error = %v, want sentinel", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows = %d, want 0 after rollback", n)
	}
}

func TestNew_FileAndCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	if err := s.Checkpoint(context.Background()); err != nil {
		t.Errorf("Checkpoint: %v", err)
	}
}
