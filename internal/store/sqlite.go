package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inkfold/printq/internal/queue"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(CreateJobsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) ([]queue.Job, error) {
	rows, err := s.db.QueryContext(ctx, ListJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []queue.Job
	for rows.Next() {
		var job queue.Job
		var extraJSON string
		if err := rows.Scan(
			&job.QueuePosition, &job.OrderID, &job.Customer, &job.Quantity,
			&job.Deadline, &job.Priority, &job.Description,
			&job.ProcessedAt, &job.CreatedAt, &job.Status, &extraJSON); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if extraJSON != "" {
			if err := json.Unmarshal([]byte(extraJSON), &job.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode extra fields: %w", err)
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, jobs []queue.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, DeleteAllJobs); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear jobs: %w", err)
	}

	for _, job := range jobs {
		extraJSON := ""
		if len(job.Extra) > 0 {
			data, err := json.Marshal(job.Extra)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to encode extra fields: %w", err)
			}
			extraJSON = string(data)
		}

		if _, err := tx.ExecContext(ctx, InsertJob,
			job.QueuePosition, job.OrderID, job.Customer, job.Quantity,
			job.Deadline, job.Priority, job.Description,
			job.ProcessedAt, job.CreatedAt, job.Status, extraJSON); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit jobs: %w", err)
	}
	return nil
}
