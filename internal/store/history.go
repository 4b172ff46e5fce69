package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// History journals one row per merge cycle so operators can see what each
// run extracted, merged and flagged.
type History struct {
	db *sql.DB
}

type CycleRecord struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Extracted int       `json:"extracted"`
	Failed    int       `json:"failed"`
	Merged    int       `json:"merged"`
	Problems  int       `json:"problems"`
	Note      string    `json:"note"`
}

func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(CreateCyclesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cycles table: %w", err)
	}

	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) Record(ctx context.Context, rec CycleRecord) error {
	_, err := h.db.ExecContext(ctx, InsertCycle,
		rec.StartedAt, rec.Extracted, rec.Failed, rec.Merged, rec.Problems, rec.Note)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

func (h *History) Recent(ctx context.Context, limit int) ([]CycleRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := h.db.QueryContext(ctx, ListRecentCycles, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.Extracted,
			&rec.Failed, &rec.Merged, &rec.Problems, &rec.Note); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
