package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Dialect selects SQL syntax differences between backends.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore persists records in a single table. Times are stored as unix
// milliseconds; an expires_at of zero never expires.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	opts    options
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection also serializes Update.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return newSQLStore(ctx, db, DialectSQLite, opts)
}

// OpenPostgres connects to a PostgreSQL database via pgx.
func OpenPostgres(ctx context.Context, url string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLStore(ctx, db, DialectPostgres, opts)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, opts []Option) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialect, opts: newOptions(opts)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
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

const selectRecord = `SELECT jira_issue_key, github_issue_number, github_issue_url, fingerprint, comments, synced_at, expires_at
FROM sync_records
WHERE jira_issue_key = ? AND (expires_at = 0 OR expires_at > ?)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec      Record
		comments string
		synced   int64
		expires  int64
	)
	err := row.Scan(&rec.JiraIssueKey, &rec.GitHubIssueNumber, &rec.GitHubIssueURL, &rec.Fingerprint, &comments, &synced, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan sync record: %w", err)
	}

	rec.Comments = map[string]int64{}
	if comments != "" {
		if err := json.Unmarshal([]byte(comments), &rec.Comments); err != nil {
			return Record{}, fmt.Errorf("unmarshal comment map: %w", err)
		}
	}
	rec.SyncedAt = fromMillis(synced)
	rec.ExpiresAt = fromMillis(expires)
	return rec, nil
}

// Get returns the live record for key.
func (s *SQLStore) Get(ctx context.Context, key string) (Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectRecord), key, s.opts.now().UnixMilli())
	return scanRecord(row)
}

// CreateIfAbsent inserts rec. An expired row for the same key is replaced;
// a live one makes the upsert a no-op, reported as ErrExists.
func (s *SQLStore) CreateIfAbsent(ctx context.Context, rec Record) error {
	now := s.opts.now()
	rec = rec.Clone()
	s.opts.stamp(&rec, now)

	comments, err := json.Marshal(rec.Comments)
	if err != nil {
		return fmt.Errorf("marshal comment map: %w", err)
	}

	const q = `INSERT INTO sync_records
    (jira_issue_key, github_issue_number, github_issue_url, fingerprint, comments, synced_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (jira_issue_key) DO UPDATE SET
    github_issue_number = excluded.github_issue_number,
    github_issue_url = excluded.github_issue_url,
    fingerprint = excluded.fingerprint,
    comments = excluded.comments,
    synced_at = excluded.synced_at,
    expires_at = excluded.expires_at
WHERE sync_records.expires_at <> 0 AND sync_records.expires_at <= ?`

	res, err := s.db.ExecContext(ctx, s.rebind(q),
		rec.JiraIssueKey,
		rec.GitHubIssueNumber,
		rec.GitHubIssueURL,
		rec.Fingerprint,
		string(comments),
		toMillis(rec.SyncedAt),
		toMillis(rec.ExpiresAt),
		now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create sync record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create sync record: %w", err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// Update reads, mutates and writes the record in one transaction.
func (s *SQLStore) Update(ctx context.Context, key string, fn Mutator) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	now := s.opts.now()
	q := selectRecord
	if s.dialect == DialectPostgres {
		q += " FOR UPDATE"
	}

	cur, err := scanRecord(tx.QueryRowContext(ctx, s.rebind(q), key, now.UnixMilli()))
	if err != nil {
		return Record{}, err
	}

	next, err := applyMutator(cur, fn)
	if err != nil {
		return Record{}, err
	}
	s.opts.stamp(&next, now)

	comments, err := json.Marshal(next.Comments)
	if err != nil {
		return Record{}, fmt.Errorf("marshal comment map: %w", err)
	}

	const upd = `UPDATE sync_records
SET fingerprint = ?, comments = ?, synced_at = ?, expires_at = ?
WHERE jira_issue_key = ?`
	if _, err := tx.ExecContext(ctx, s.rebind(upd),
		next.Fingerprint,
		string(comments),
		toMillis(next.SyncedAt),
		toMillis(next.ExpiresAt),
		key,
	); err != nil {
		return Record{}, fmt.Errorf("update sync record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit sync record: %w", err)
	}
	return next, nil
}

// Purge deletes expired rows.
func (s *SQLStore) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM sync_records WHERE expires_at <> 0 AND expires_at <= ?`),
		s.opts.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge sync records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sync records: %w", err)
	}
	return int(n), nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
