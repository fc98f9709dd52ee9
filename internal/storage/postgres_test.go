package storage

import (
	"context"
	"math/big"
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Host != "localhost" || cfg.Port != 5432 || cfg.Database != "shieldpool" {
		t.Fatalf("unexpected default config: %+v", cfg)
	}
	if cfg.MaxConns <= 0 {
		t.Fatalf("expected a positive default pool size, got %d", cfg.MaxConns)
	}
}

// dsnFromEnv builds a Config from the SHIELDPOOL_TEST_DB_* environment
// variables, and skips the calling test when SHIELDPOOL_TEST_DB_HOST is not
// set (no real PostgreSQL instance to run against). The four-table schema this package
// manages needs a live server to exercise, so the remaining tests in this
// file are an integration suite, skipped by default rather than run
// against a fake.
func dsnFromEnv(t *testing.T) *Config {
	t.Helper()
	host := os.Getenv("SHIELDPOOL_TEST_DB_HOST")
	if host == "" {
		t.Skip("SHIELDPOOL_TEST_DB_HOST not set; skipping PostgreSQL integration test")
	}
	cfg := DefaultConfig()
	cfg.Host = host
	if db := os.Getenv("SHIELDPOOL_TEST_DB_NAME"); db != "" {
		cfg.Database = db
	}
	if user := os.Getenv("SHIELDPOOL_TEST_DB_USER"); user != "" {
		cfg.User = user
	}
	if pass := os.Getenv("SHIELDPOOL_TEST_DB_PASSWORD"); pass != "" {
		cfg.Password = pass
	}
	return cfg
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	cfg := dsnFromEnv(t)
	ctx := context.Background()

	store, err := NewPostgresStore(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := store.SetCell(ctx, 3, 7, big.NewInt(12345)); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	got, found, err := store.GetCell(ctx, 3, 7)
	if err != nil {
		t.Fatalf("get cell: %v", err)
	}
	if !found || got.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("cell round trip mismatch: found=%v got=%v", found, got)
	}

	nullifier := big.NewInt(999)
	if has, err := store.HasNullifier(ctx, nullifier); err != nil || has {
		t.Fatalf("expected unseen nullifier, has=%v err=%v", has, err)
	}
	if err := store.AddNullifier(ctx, nullifier, 1); err != nil {
		t.Fatalf("add nullifier: %v", err)
	}
	if has, err := store.HasNullifier(ctx, nullifier); err != nil || !has {
		t.Fatalf("expected seen nullifier, has=%v err=%v", has, err)
	}

	commitment := big.NewInt(555)
	if err := store.SaveOwnedNote(ctx, commitment, 2, []byte("note-bytes")); err != nil {
		t.Fatalf("save owned note: %v", err)
	}
	unspent, err := store.UnspentNotes(ctx)
	if err != nil {
		t.Fatalf("unspent notes: %v", err)
	}
	found = false
	for _, n := range unspent {
		if n.Commitment.Cmp(commitment) == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("saved note did not appear in unspent notes")
	}

	if err := store.MarkNoteSpent(ctx, commitment); err != nil {
		t.Fatalf("mark note spent: %v", err)
	}
	unspent, err = store.UnspentNotes(ctx)
	if err != nil {
		t.Fatalf("unspent notes after spend: %v", err)
	}
	for _, n := range unspent {
		if n.Commitment.Cmp(commitment) == 0 {
			t.Fatalf("note still listed as unspent after MarkNoteSpent")
		}
	}
}
