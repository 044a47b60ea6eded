package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on renders.rule_set
const currentSchemaVersion = 1

// Store is a durable render cache.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached output for key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var output string
	err := s.db.QueryRowContext(ctx, `SELECT output FROM renders WHERE key = ?`, key).Scan(&output)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read render: %w", err)
	}
	return output, true, nil
}

// Put stores output under key. Writing an existing key is a no-op.
func (s *Store) Put(ctx context.Context, key, ruleSet, output string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO renders (key, rule_set, output, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM renders))
		ON CONFLICT(key) DO NOTHING
	`, key, ruleSet, output)
	if err != nil {
		return fmt.Errorf("write render: %w", err)
	}
	return nil
}

// Count returns the number of cached renders.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM renders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count renders: %w", err)
	}
	return n, nil
}

// RuleSetCount is the number of cached renders of one rule set.
type RuleSetCount struct {
	RuleSet string `json:"rule_set"`
	Renders int64  `json:"renders"`
}

// RuleSets returns the cached render counts per rule set.
func (s *Store) RuleSets(ctx context.Context) ([]RuleSetCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_set, COUNT(*)
		FROM renders
		GROUP BY rule_set
		ORDER BY rule_set COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rule sets: %w", err)
	}
	defer rows.Close()

	out := []RuleSetCount{}
	for rows.Next() {
		var c RuleSetCount
		if err := rows.Scan(&c.RuleSet, &c.Renders); err != nil {
			return nil, fmt.Errorf("scan rule set: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Invalidate deletes every render produced by ruleSet and returns how many
// rows were removed.
func (s *Store) Invalidate(ctx context.Context, ruleSet string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM renders WHERE rule_set = ?`, ruleSet)
	if err != nil {
		return 0, fmt.Errorf("invalidate %s: %w", ruleSet, err)
	}
	return res.RowsAffected()
}

// Prune keeps the newest keep renders and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM renders
		WHERE seq NOT IN (SELECT seq FROM renders ORDER BY seq DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune renders: %w", err)
	}
	return res.RowsAffected()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes renders by rule set for Invalidate.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_renders_rule_set ON renders(rule_set)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
