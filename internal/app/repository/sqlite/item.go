package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"video2guide/internal/app/repository"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    input_dir TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL,
    transcription_provider TEXT NOT NULL DEFAULT '',
    generation_provider TEXT NOT NULL DEFAULT '',
    quality_score REAL NOT NULL DEFAULT 0,
    duration_sec REAL NOT NULL DEFAULT 0,
    processed_at TIMESTAMP NOT NULL,
    has_error INTEGER NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_items_file_name ON items(file_name);
CREATE INDEX IF NOT EXISTS idx_items_run_id ON items(run_id);
`

type ItemDB struct {
	db *sql.DB
}

// NewItemDB opens (creating if needed) the sqlite database at dbFilePath.
func NewItemDB(dbFilePath string) (*ItemDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbFilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbFilePath, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &ItemDB{db: db}, nil
}

func (s *ItemDB) Close() error {
	return s.db.Close()
}

func (s *ItemDB) CheckIfProcessed(fileName string) (int64, error) {
	query := `SELECT id FROM items WHERE file_name = ? AND has_error = 0 ORDER BY id DESC LIMIT 1`
	var id int64
	err := s.db.QueryRow(query, fileName).Scan(&id)
	return id, err
}

func (s *ItemDB) Record(rec repository.ItemRecord) error {
	insertSQL := `INSERT INTO items
		(run_id, file_name, input_dir, mode, transcription_provider, generation_provider, quality_score, duration_sec, processed_at, has_error, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := s.db.Exec(insertSQL,
		rec.RunID, rec.FileName, rec.InputDir, rec.Mode,
		rec.TranscriptionProvider, rec.GenerationProvider,
		rec.QualityScore, rec.DurationSec, rec.ProcessedAt,
		rec.HasError, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert item record: %w", err)
	}
	return nil
}

func (s *ItemDB) ListByRun(runID string) ([]repository.ItemRecord, error) {
	query := `
		SELECT id, run_id, file_name, input_dir, mode, transcription_provider, generation_provider, quality_score, duration_sec, processed_at, has_error, error_message
		FROM items
		WHERE run_id = ?
		ORDER BY id;`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	records := make([]repository.ItemRecord, 0)
	for rows.Next() {
		var r repository.ItemRecord
		err = rows.Scan(&r.ID, &r.RunID, &r.FileName, &r.InputDir, &r.Mode,
			&r.TranscriptionProvider, &r.GenerationProvider,
			&r.QualityScore, &r.DurationSec, &r.ProcessedAt,
			&r.HasError, &r.ErrorMessage)
		if err != nil {
			return nil, fmt.Errorf("db scan failed: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
