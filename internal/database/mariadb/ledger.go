package mariadb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// LedgerRepository provides MariaDB-backed attendance storage
type LedgerRepository struct {
	pool *Pool
}

// FindEntry returns the row for the key, or nil if there is none
func (r *LedgerRepository) FindEntry(ctx context.Context, identityID, date, course string) (*database.LedgerEntry, error) {
	var row attendanceRow
	err := r.pool.session(ctx).
		Where("identity_id = ? AND date = ? AND course = ?", identityID, date, course).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	entry := row.toEntry()
	return &entry, nil
}

// InsertEntry creates a row
func (r *LedgerRepository) InsertEntry(ctx context.Context, entry *database.LedgerEntry) error {
	date, err := time.Parse(constants.DateLayout, entry.Date)
	if err != nil {
		return fmt.Errorf("insert attendance: invalid date %q: %w", entry.Date, err)
	}

	row := attendanceRow{
		IdentityID: entry.IdentityID,
		Name:       entry.Name,
		Department: entry.Department,
		Course:     entry.Course,
		Date:       date,
		CreatedAt:  entry.CreatedAt,
		LastSeen:   entry.LastSeen,
	}
	err = r.pool.session(ctx).Create(&row).Error
	if isDuplicate(err) {
		return fmt.Errorf("insert attendance: %w", database.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// TouchEntry updates LastSeen of an existing row
func (r *LedgerRepository) TouchEntry(ctx context.Context, identityID, date, course string, lastSeen time.Time) error {
	err := r.pool.session(ctx).Model(&attendanceRow{}).
		Where("identity_id = ? AND date = ? AND course = ?", identityID, date, course).
		Update("last_seen", lastSeen).Error
	if err != nil {
		return fmt.Errorf("touch attendance: %w", err)
	}
	return nil
}

// EntriesForDate returns all rows of a day, most recently seen first
func (r *LedgerRepository) EntriesForDate(ctx context.Context, date string) ([]database.LedgerEntry, error) {
	var rows []attendanceRow
	err := r.pool.session(ctx).
		Where("date = ?", date).
		Order("last_seen DESC, identity_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	entries := make([]database.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].toEntry()
	}
	return entries, nil
}

// CountForDate returns the number of distinct identities seen on a day
func (r *LedgerRepository) CountForDate(ctx context.Context, date string) (int, error) {
	var n int64
	err := r.pool.session(ctx).Model(&attendanceRow{}).
		Where("date = ?", date).
		Distinct("identity_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return int(n), nil
}

// DeleteAllEntries removes every attendance row
func (r *LedgerRepository) DeleteAllEntries(ctx context.Context) error {
	err := r.pool.session(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&attendanceRow{}).Error
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
