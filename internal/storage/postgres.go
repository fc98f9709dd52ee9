// Package storage implements the pool's persistent key-value backend: the
// four columns spec §4.D describes (defaults, cells, nullifiers, owned
// notes) on top of PostgreSQL. The in-memory tree store used by tests is
// tree.MemoryStore.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors
var (
	ErrNotFound     = errors.New("storage: not found")
	ErrDuplicate    = errors.New("storage: duplicate entry")
	ErrInvalidData  = errors.New("storage: invalid data")
	ErrDBConnection = errors.New("storage: database connection error")
)

// PostgresStore implements persistent storage for the pool's four logical
// columns using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "shieldpool",
		Password: "",
		Database: "shieldpool",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// NewPostgresStore creates a new PostgreSQL-backed store and verifies
// connectivity.
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate creates the four tables this store needs if they do not already
// exist. Schema is intentionally minimal: field-element columns store
// big.Int.Bytes() (big-endian, minimal width), owned_notes.note stores the
// note's encoded bytes, and lookups are always by exact key.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_defaults (
			key   TEXT PRIMARY KEY,
			value BYTEA NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cells (
			level INTEGER NOT NULL,
			index_ BIGINT NOT NULL,
			value  BYTEA NOT NULL,
			PRIMARY KEY (level, index_)
		)`,
		`CREATE TABLE IF NOT EXISTS nullifiers_seen (
			nullifier BYTEA PRIMARY KEY,
			tx_index  BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS owned_notes (
			commitment BYTEA PRIMARY KEY,
			position   BIGINT NOT NULL,
			note       BYTEA NOT NULL,
			spent      BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate: %w", err)
		}
	}
	return nil
}

// ---- tree.Store-shaped cell operations ----

// GetCell reads a tree node at (level, index).
func (s *PostgresStore) GetCell(ctx context.Context, level int, index uint64) (*big.Int, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM cells WHERE level = $1 AND index_ = $2`, level, int64(index),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: get cell: %w", err)
	}
	return new(big.Int).SetBytes(raw), true, nil
}

// SetCell writes a tree node at (level, index).
func (s *PostgresStore) SetCell(ctx context.Context, level int, index uint64, value *big.Int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cells (level, index_, value) VALUES ($1, $2, $3)
		 ON CONFLICT (level, index_) DO UPDATE SET value = EXCLUDED.value`,
		level, int64(index), value.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("storage: set cell: %w", err)
	}
	return nil
}

// ---- defaults (root, size, and other single-value settings) ----

func (s *PostgresStore) GetDefault(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_defaults WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: get default %q: %w", key, err)
	}
	return raw, true, nil
}

func (s *PostgresStore) SetDefault(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_defaults (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storage: set default %q: %w", key, err)
	}
	return nil
}

// ---- nullifiers ----

// HasNullifier reports whether a nullifier has already been recorded.
func (s *PostgresStore) HasNullifier(ctx context.Context, nullifier *big.Int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM nullifiers_seen WHERE nullifier = $1)`, nullifier.Bytes(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("storage: has nullifier: %w", err)
	}
	return exists, nil
}

// AddNullifier records a newly spent nullifier at the given tx index.
func (s *PostgresStore) AddNullifier(ctx context.Context, nullifier *big.Int, txIndex uint64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nullifiers_seen (nullifier, tx_index) VALUES ($1, $2)
		 ON CONFLICT (nullifier) DO NOTHING`,
		nullifier.Bytes(), int64(txIndex),
	)
	if err != nil {
		return fmt.Errorf("storage: add nullifier: %w", err)
	}
	return nil
}

// ---- owned notes ----

// SaveOwnedNote stores a note this client controls, keyed by its
// commitment (note hash).
func (s *PostgresStore) SaveOwnedNote(ctx context.Context, commitment *big.Int, position uint64, note []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO owned_notes (commitment, position, note, spent) VALUES ($1, $2, $3, FALSE)
		 ON CONFLICT (commitment) DO NOTHING`,
		commitment.Bytes(), int64(position), note,
	)
	if err != nil {
		return fmt.Errorf("storage: save owned note: %w", err)
	}
	return nil
}

// MarkNoteSpent flags an owned note as spent.
func (s *PostgresStore) MarkNoteSpent(ctx context.Context, commitment *big.Int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE owned_notes SET spent = TRUE WHERE commitment = $1`, commitment.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("storage: mark note spent: %w", err)
	}
	return nil
}

// UnspentNotes returns every owned note not yet marked spent.
func (s *PostgresStore) UnspentNotes(ctx context.Context) ([]OwnedNote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT commitment, position, note FROM owned_notes WHERE spent = FALSE ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: unspent notes: %w", err)
	}
	defer rows.Close()

	var out []OwnedNote
	for rows.Next() {
		var commitment, note []byte
		var position int64
		if err := rows.Scan(&commitment, &position, &note); err != nil {
			return nil, fmt.Errorf("storage: scan owned note: %w", err)
		}
		out = append(out, OwnedNote{
			Commitment: new(big.Int).SetBytes(commitment),
			Position:   uint64(position),
			NoteBytes:  note,
		})
	}
	return out, rows.Err()
}

// OwnedNote is a note this client holds the spending authority for.
type OwnedNote struct {
	Commitment *big.Int
	Position   uint64
	NoteBytes  []byte
}
