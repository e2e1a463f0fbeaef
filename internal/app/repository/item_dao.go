package repository

import (
	"time"
)

// ItemRecord is one processed media item's row.
type ItemRecord struct {
	ID                    int64
	RunID                 string
	FileName              string
	InputDir              string
	Mode                  string
	TranscriptionProvider string
	GenerationProvider    string
	QualityScore          float64
	DurationSec           float64
	ProcessedAt           time.Time
	HasError              int
	ErrorMessage          string
}

// ItemDAO persists per-item processing records for batch skip checks and
// reporting.
type ItemDAO interface {
	Close() error

	// CheckIfProcessed returns the record id of a prior successful run for
	// fileName, or sql.ErrNoRows.
	CheckIfProcessed(fileName string) (int64, error)

	Record(rec ItemRecord) error

	ListByRun(runID string) ([]ItemRecord, error)
}
