// Package ledger records issued IDs in a SQLite database so they can be
// audited later and queried by the time they were minted.
//
// The id column is the INTEGER PRIMARY KEY, so SQLite stores rows in ID order
// and a time range maps onto a primary key range with snowflake.MinIDAt and
// snowflake.MaxIDAt. No secondary time index is needed.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/crispinlab/snowflake"
)

var (
	// ErrDuplicateID is returned by Record when an ID is already in the ledger.
	ErrDuplicateID = errors.New("ledger: id already recorded")

	// ErrNotFound is returned by Latest when the node has no recorded IDs.
	ErrNotFound = errors.New("ledger: no ids recorded")
)

const schema = `
CREATE TABLE IF NOT EXISTS ids (
	id           INTEGER PRIMARY KEY,
	node_id      INTEGER NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	sequence     INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ids_node_id ON ids (node_id, id);
`

// Entry is one recorded ID with its decoded fields.
type Entry struct {
	ID        snowflake.ID
	NodeID    int64
	Timestamp time.Time // when the ID was minted, from its time offset
	Sequence  int64
	CreatedAt time.Time // when the ID was recorded
}

// Ledger is a SQLite-backed record of issued IDs. It is safe for concurrent use.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at path. Use ":memory:"
// for a private in-memory ledger.
func Open(path string) (*Ledger, error) {
	inMemory := path == ":memory:" || strings.HasPrefix(path, "file::memory:")
	dsn := path
	if !inMemory {
		dsn = withParams(path, "_txlock=immediate", "_busy_timeout=5000")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if inMemory {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores ids, decoded with epoch, in a single transaction. If any ID is
// already present nothing is stored and the error wraps ErrDuplicateID.
func (l *Ledger) Record(ctx context.Context, epoch int64, ids ...snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO ids (id, node_id, timestamp_ms, sequence, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare record: %w", err)
	}
	defer stmt.Close()

	createdAt := l.now().UnixMilli()
	for _, id := range ids {
		parts := snowflake.Decompose(id, epoch)
		if _, err := stmt.ExecContext(ctx, id, parts.NodeID, parts.Timestamp, parts.Sequence, createdAt); err != nil {
			if isPrimaryKeyViolation(err) {
				return fmt.Errorf("record %d: %w", id, ErrDuplicateID)
			}
			return fmt.Errorf("record %d: %w", id, err)
		}
	}
	return tx.Commit()
}

const selectEntries = "SELECT id, node_id, timestamp_ms, sequence, created_at FROM ids"

// Range returns the IDs minted between from and to, both inclusive at
// millisecond precision, in ID order. epoch must be the epoch the IDs were
// generated with.
func (l *Ledger) Range(ctx context.Context, from, to time.Time, epoch int64) ([]Entry, error) {
	lo, hi := snowflake.MinIDAt(from, epoch), snowflake.MaxIDAt(to, epoch)
	return l.query(ctx, selectEntries+" WHERE id BETWEEN ? AND ? ORDER BY id", lo, hi)
}

// RangeNode is Range restricted to the IDs of one node. It is answered from
// the (node_id, id) index.
func (l *Ledger) RangeNode(ctx context.Context, nodeID int64, from, to time.Time, epoch int64) ([]Entry, error) {
	lo, hi := snowflake.MinIDAt(from, epoch), snowflake.MaxIDAt(to, epoch)
	return l.query(ctx, rangeNodeQuery, nodeID, lo, hi)
}

const rangeNodeQuery = selectEntries + " WHERE node_id = ? AND id BETWEEN ? AND ? ORDER BY id"

func (l *Ledger) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the highest ID recorded for nodeID.
func (l *Ledger) Latest(ctx context.Context, nodeID int64) (Entry, error) {
	row := l.db.QueryRowContext(ctx,
		selectEntries+" WHERE node_id = ? ORDER BY id DESC LIMIT 1",
		nodeID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("node %d: %w", nodeID, ErrNotFound)
	}
	return e, err
}

// Count returns the number of recorded IDs.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ids").Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                    Entry
		timestampMs, created int64
	)
	if err := s.Scan(&e.ID, &e.NodeID, &timestampMs, &e.Sequence, &created); err != nil {
		return Entry{}, err
	}
	e.Timestamp = time.UnixMilli(timestampMs).UTC()
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

// withParams appends go-sqlite3 connection parameters to a file path or URI.
// Writers take the lock at BEGIN and wait for each other instead of failing
// with SQLITE_BUSY on upgrade.
func withParams(path string, params ...string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
