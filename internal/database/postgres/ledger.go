package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// LedgerRepository provides PostgreSQL-backed attendance storage
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func scanEntry(row interface{ Scan(...any) error }) (database.LedgerEntry, error) {
	var e database.LedgerEntry
	var date time.Time
	err := row.Scan(&e.IdentityID, &e.Name, &e.Department, &e.Course, &date, &e.CreatedAt, &e.LastSeen)
	e.Date = date.Format(constants.DateLayout)
	return e, err
}

const entryColumns = `identity_id, name, department, course, date, created_at, last_seen`

// FindEntry returns the row for the key, or nil if there is none
func (r *LedgerRepository) FindEntry(ctx context.Context, identityID, date, course string) (*database.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM attendance
		WHERE identity_id = $1 AND date = $2 AND course = $3
	`, identityID, date, course)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &entry, nil
}

// InsertEntry creates a row
func (r *LedgerRepository) InsertEntry(ctx context.Context, entry *database.LedgerEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (identity_id, name, department, course, date, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.IdentityID, entry.Name, entry.Department, entry.Course, entry.Date, entry.CreatedAt, entry.LastSeen)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// TouchEntry updates LastSeen of an existing row
func (r *LedgerRepository) TouchEntry(ctx context.Context, identityID, date, course string, lastSeen time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE attendance SET last_seen = $4
		WHERE identity_id = $1 AND date = $2 AND course = $3
	`, identityID, date, course, lastSeen)
	if err != nil {
		return fmt.Errorf("touch attendance: %w", err)
	}
	return nil
}

// EntriesForDate returns all rows of a day, most recently seen first
func (r *LedgerRepository) EntriesForDate(ctx context.Context, date string) ([]database.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM attendance
		WHERE date = $1
		ORDER BY last_seen DESC, identity_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var entries []database.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return entries, nil
}

// CountForDate returns the number of distinct identities seen on a day
func (r *LedgerRepository) CountForDate(ctx context.Context, date string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT identity_id) FROM attendance WHERE date = $1`, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return n, nil
}

// DeleteAllEntries removes every attendance row
func (r *LedgerRepository) DeleteAllEntries(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM attendance"); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
