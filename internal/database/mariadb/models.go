package mariadb

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

type identityRow struct {
	ID                string    `gorm:"primaryKey;type:varchar(20)"`
	Name              string    `gorm:"type:varchar(100);not null"`
	Department        string    `gorm:"type:varchar(50);not null;default:''"`
	Semester          string    `gorm:"type:varchar(20);not null;default:''"`
	Section           string    `gorm:"type:varchar(10);not null;default:''"`
	Samples           []byte    `gorm:"type:longblob"`
	HasEnrollmentData bool      `gorm:"not null;default:false;index"`
	CreatedAt         time.Time `gorm:"type:datetime(6);autoCreateTime"`
	UpdatedAt         time.Time `gorm:"type:datetime(6);autoUpdateTime"`
}

func (identityRow) TableName() string {
	return "identities"
}

func (r *identityRow) toStored() database.StoredIdentity {
	return database.StoredIdentity{
		ID:                r.ID,
		Name:              r.Name,
		Department:        r.Department,
		Semester:          r.Semester,
		Section:           r.Section,
		HasEnrollmentData: r.HasEnrollmentData,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// attendanceRow has no foreign key to identities: rows outlive identity resets.
type attendanceRow struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	IdentityID string    `gorm:"type:varchar(20);not null;uniqueIndex:unique_attendance,priority:1"`
	Name       string    `gorm:"type:varchar(100);not null"`
	Department string    `gorm:"type:varchar(50);not null;default:''"`
	Course     string    `gorm:"type:varchar(20);not null;default:'';uniqueIndex:unique_attendance,priority:3"`
	Date       time.Time `gorm:"type:date;not null;index;uniqueIndex:unique_attendance,priority:2"`
	CreatedAt  time.Time `gorm:"type:datetime(6);not null"`
	LastSeen   time.Time `gorm:"type:datetime(6);not null"`
}

func (attendanceRow) TableName() string {
	return "attendance"
}

func (r *attendanceRow) toEntry() database.LedgerEntry {
	return database.LedgerEntry{
		IdentityID: r.IdentityID,
		Name:       r.Name,
		Department: r.Department,
		Course:     r.Course,
		Date:       r.Date.Format(constants.DateLayout),
		CreatedAt:  r.CreatedAt,
		LastSeen:   r.LastSeen,
	}
}

type sightingRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ImagePath  string    `gorm:"type:varchar(255);not null"`
	DetectedAt time.Time `gorm:"type:datetime(6);not null;index"`
}

func (sightingRow) TableName() string {
	return "unknown_sightings"
}
