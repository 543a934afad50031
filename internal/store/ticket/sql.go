package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL engine.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultDocument is the row name used when none is configured.
const DefaultDocument = "support_chat"

// SQLBackend keeps the document as a single row, so a save still replaces
// the whole document in one statement.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	name    string
}

// OpenSQLBackend opens dsn with the driver for dialect and creates the tables.
func OpenSQLBackend(ctx context.Context, dialect Dialect, dsn, name string) (*SQLBackend, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("ticket store: unsupported sql dialect %q", dialect)
	}
	if name == "" {
		name = DefaultDocument
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("ticket store: wal: %w", err)
		}
	}

	b := &SQLBackend{db: db, dialect: dialect, name: name}
	if err := b.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLBackend) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ticket_documents (
			name       TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ticket_document_quarantine (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			body           TEXT NOT NULL,
			quarantined_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ticket store: migrate: %w", err)
		}
	}
	return nil
}

func (b *SQLBackend) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := b.db.QueryRowContext(ctx, b.rebind(`SELECT body FROM ticket_documents WHERE name = ?`), b.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", b.name, err)
	}
	return []byte(body), nil
}

func (b *SQLBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, b.rebind(`
		INSERT INTO ticket_documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`), b.name, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", b.name, err)
	}
	return nil
}

// Quarantine copies the corrupt body into the quarantine table and drops the live row.
func (b *SQLBackend) Quarantine(ctx context.Context, data []byte, at time.Time) (string, error) {
	id := uuid.NewString()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("quarantine %s: %w", b.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, b.rebind(`
		INSERT INTO ticket_document_quarantine (id, name, body, quarantined_at) VALUES (?, ?, ?, ?)
	`), id, b.name, string(data), at.UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", b.name, err)
	}
	if _, err := tx.ExecContext(ctx, b.rebind(`DELETE FROM ticket_documents WHERE name = ?`), b.name); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", b.name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", b.name, err)
	}
	return "ticket_document_quarantine/" + id, nil
}

// DB returns the underlying database connection (for testing or direct access).
func (b *SQLBackend) DB() *sql.DB {
	return b.db
}

// Close releases the database handle.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// rebind rewrites ? placeholders into $n for postgres.
func (b *SQLBackend) rebind(query string) string {
	if b.dialect != DialectPostgres {
		return query
	}
	var (
		sb strings.Builder
		n  int
	)
	sb.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
