package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/inkfold/printq/internal/queue"
)

const queueSheet = "Queue"

// ExcelStore keeps the queue in a spreadsheet, one job per row under the
// labeled header, the form the shop floor opens directly.
type ExcelStore struct {
	path string
}

func NewExcelStore(path string) *ExcelStore {
	return &ExcelStore{path: path}
}

func (s *ExcelStore) Load(ctx context.Context) ([]queue.Job, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("failed to read queue sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	table := &queue.Table{Columns: rows[0]}
	for _, row := range rows[1:] {
		// GetRows trims trailing blank cells, pad back to full width.
		padded := make([]string, len(table.Columns))
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}

	return queue.FromTable(table), nil
}

func (s *ExcelStore) Save(ctx context.Context, jobs []queue.Job) error {
	table := queue.ToTable(jobs)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(queueSheet)
	if err != nil {
		return fmt.Errorf("failed to create queue sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := writeRow(f, 1, table.Columns); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "queue-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp workbook: %w", err)
	}
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write queue workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to flush queue workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace queue workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(queueSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// Header names intake workbooks use for the free-text order column.
var descriptionHeaders = map[string]bool{
	"description":     true,
	"описание":        true,
	"описание заказа": true,
	"order text":      true,
	"текст заказа":    true,
	"заказ":           true,
}

// ReadDescriptions pulls free-text order descriptions out of an intake
// workbook. The description column is found by header name, falling back to
// the first column when no known header matches.
func ReadDescriptions(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open intake workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("failed to read intake sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	for i, header := range rows[0] {
		if descriptionHeaders[strings.ToLower(strings.TrimSpace(header))] {
			col = i
			break
		}
	}

	var texts []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if text := strings.TrimSpace(row[col]); text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}
