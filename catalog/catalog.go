// Package catalog is a bookkeeping layer over completed video segments
// and image batches: the filesystem under each sink's output directory
// remains the source of truth, the catalog only records what was
// written and when, so a consumer can list recent segments without
// walking the tree. Grounded on the teacher's deps.Deps{DB *gorm.DB}
// field: this package gives that field an actual schema and owner.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// SegmentRecord is one row per completed video segment or image batch.
type SegmentRecord struct {
	ID         uint `gorm:"primarykey"`
	Name       string
	DeviceList string // comma-joined device names; gorm has no native []string column
	FrameCount int
	CreatedAt  time.Time
}

// Devices splits DeviceList back into a slice.
func (r SegmentRecord) Devices() []string {
	if r.DeviceList == "" {
		return nil
	}
	return strings.Split(r.DeviceList, ",")
}

// Writer records SegmentRecords into a sqlite-backed catalog database.
type Writer struct {
	db *gorm.DB
}

// Open opens (creating if absent) the catalog database at path and
// ensures its schema is migrated.
func Open(path string) (*Writer, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&SegmentRecord{}); err != nil {
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &Writer{db: db}, nil
}

// NewRecord is the caller-facing shape for RecordSegment; Devices is
// joined into SegmentRecord.DeviceList before insert.
type NewRecord struct {
	Name       string
	Devices    []string
	FrameCount int
	CreatedAt  time.Time
}

// RecordSegment inserts one row for a completed segment or image batch.
func (w *Writer) RecordSegment(in NewRecord) error {
	row := SegmentRecord{
		Name:       in.Name,
		DeviceList: strings.Join(in.Devices, ","),
		FrameCount: in.FrameCount,
		CreatedAt:  in.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := w.db.Create(&row).Error; err != nil {
		return fmt.Errorf("catalog: record segment %q: %w", in.Name, err)
	}
	return nil
}

// Recent returns the n most recently created records.
func (w *Writer) Recent(n int) ([]SegmentRecord, error) {
	var rows []SegmentRecord
	if err := w.db.Order("created_at desc").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog: query recent: %w", err)
	}
	return rows, nil
}

// Close releases the underlying database connection.
func (w *Writer) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
