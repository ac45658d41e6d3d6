package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"holdem-live/holdem"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
	dialectMySQL    dialect = "mysql"
)

// SQLStore keeps table documents and the hand archive in one database/sql handle.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL opens driver ("sqlite", "postgres" or "mysql") and creates the schema.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	d := dialect(strings.ToLower(strings.TrimSpace(driver)))
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("empty %s dsn", driver)
	}

	var db *sql.DB
	var err error
	switch d {
	case dialectSQLite:
		db, err = openSQLite(dsn)
	case dialectPostgres:
		db, err = openPooled("postgres", dsn)
	case dialectMySQL:
		db, err = openPooled("mysql", dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := &SQLStore{db: db, dialect: d}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		parent := filepath.Dir(path)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openPooled(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	text := "TEXT"
	if s.dialect == dialectMySQL {
		text = "MEDIUMTEXT"
	}
	key := "TEXT"
	if s.dialect == dialectMySQL {
		key = "VARCHAR(64)"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS holdem_tables (
    id ` + key + ` PRIMARY KEY,
    version BIGINT NOT NULL,
    body ` + text + ` NOT NULL,
    updated_at_ms BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS holdem_hands (
    hand_id ` + key + ` PRIMARY KEY,
    table_id ` + key + ` NOT NULL,
    hand_number BIGINT NOT NULL,
    ended_at_ms BIGINT NOT NULL,
    body ` + text + ` NOT NULL
)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// bind rewrites ? placeholders for postgres.
func (s *SQLStore) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) SaveTable(ctx context.Context, doc Document) error {
	var query string
	switch s.dialect {
	case dialectMySQL:
		query = `
INSERT INTO holdem_tables (id, version, body, updated_at_ms) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    body = IF(VALUES(version) >= version, VALUES(body), body),
    updated_at_ms = IF(VALUES(version) >= version, VALUES(updated_at_ms), updated_at_ms),
    version = GREATEST(version, VALUES(version))`
	default:
		query = `
INSERT INTO holdem_tables (id, version, body, updated_at_ms) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    version = excluded.version,
    body = excluded.body,
    updated_at_ms = excluded.updated_at_ms
WHERE excluded.version >= holdem_tables.version`
	}
	_, err := s.db.ExecContext(ctx, s.bind(query), doc.ID, int64(doc.Version), string(doc.Body), doc.UpdatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save table %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLStore) LoadTable(ctx context.Context, id string) (Document, error) {
	var (
		version int64
		body    string
		ms      int64
	)
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT version, body, updated_at_ms FROM holdem_tables WHERE id = ?`), id).
		Scan(&version, &body, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load table %s: %w", id, err)
	}
	return Document{ID: id, Version: uint64(version), UpdatedAt: time.UnixMilli(ms).UTC(), Body: []byte(body)}, nil
}

func (s *SQLStore) DeleteTable(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM holdem_tables WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete table %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM holdem_tables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendHand(ctx context.Context, rec *holdem.CompletedHand) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}
	query := `INSERT INTO holdem_hands (hand_id, table_id, hand_number, ended_at_ms, body) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (hand_id) DO NOTHING`
	if s.dialect == dialectMySQL {
		query = `INSERT IGNORE INTO holdem_hands (hand_id, table_id, hand_number, ended_at_ms, body) VALUES (?, ?, ?, ?, ?)`
	}
	_, err = s.db.ExecContext(ctx, s.bind(query), rec.HandID, rec.TableID, rec.HandNumber, rec.EndedAt.UTC().UnixMilli(), string(body))
	if err != nil {
		return fmt.Errorf("append hand %s: %w", rec.HandID, err)
	}
	return nil
}

func (s *SQLStore) Hand(ctx context.Context, handID string) (*holdem.CompletedHand, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT body FROM holdem_hands WHERE hand_id = ?`), handID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec holdem.CompletedHand
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode hand %s: %w", handID, err)
	}
	return &rec, nil
}

// Hands lists a table's archived records by hand number.
func (s *SQLStore) Hands(ctx context.Context, tableID string, limit int) ([]*holdem.CompletedHand, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT body FROM holdem_hands WHERE table_id = ? ORDER BY hand_number DESC LIMIT ?`), tableID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*holdem.CompletedHand
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec holdem.CompletedHand
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decode hand: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
