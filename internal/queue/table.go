package queue

import (
	"sort"
	"strconv"
)

// Table is the flat display/export form of a queue: one row per job with
// cells keyed by the Columns order.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Human-readable labels for the canonical columns, in display order.
const (
	ColPosition    = "Position"
	ColOrderNumber = "Order Number"
	ColCustomer    = "Customer"
	ColQuantity    = "Quantity"
	ColDeadline    = "Deadline"
	ColPriority    = "Priority"
	ColDescription = "Description"
	ColProcessedAt = "Processed At"
)

var canonicalColumns = []string{
	ColPosition, ColOrderNumber, ColCustomer, ColQuantity,
	ColDeadline, ColPriority, ColDescription, ColProcessedAt,
}

// ToTable flattens a queue for display or export. The canonical columns come
// first under their labels, then created_at/status when any job carries one,
// then Extra fields in sorted key order. The transient priority score is
// never exported.
func ToTable(jobs []Job) *Table {
	columns := make([]string, 0, len(canonicalColumns)+2)
	columns = append(columns, canonicalColumns...)

	var hasCreated, hasStatus bool
	extraSet := make(map[string]bool)
	for _, job := range jobs {
		if job.CreatedAt != "" {
			hasCreated = true
		}
		if job.Status != "" {
			hasStatus = true
		}
		for k := range job.Extra {
			extraSet[k] = true
		}
	}
	if hasCreated {
		columns = append(columns, "created_at")
	}
	if hasStatus {
		columns = append(columns, "status")
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	columns = append(columns, extras...)

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, cellValue(job, col))
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}
}

// FromTable inverts ToTable: labeled columns map back onto the record fields
// and anything unrecognized passes through into Extra unchanged. Stored
// scores are discarded, the next sort derives them fresh.
func FromTable(t *Table) []Job {
	if t == nil {
		return nil
	}
	jobs := make([]Job, 0, len(t.Rows))
	for _, row := range t.Rows {
		var job Job
		for i, col := range t.Columns {
			if i >= len(row) {
				break
			}
			setCell(&job, col, row[i])
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func cellValue(job Job, column string) string {
	switch column {
	case ColPosition:
		return strconv.Itoa(job.QueuePosition)
	case ColOrderNumber:
		return job.OrderID
	case ColCustomer:
		return job.Customer
	case ColQuantity:
		return job.Quantity
	case ColDeadline:
		return job.Deadline
	case ColPriority:
		return job.Priority
	case ColDescription:
		return job.Description
	case ColProcessedAt:
		return job.ProcessedAt
	case "created_at":
		return job.CreatedAt
	case "status":
		return job.Status
	}
	return job.Extra[column]
}

func setCell(job *Job, column, value string) {
	switch column {
	case ColPosition:
		// Renumbered on the next sort anyway; junk becomes zero.
		job.QueuePosition, _ = strconv.Atoi(value)
	case ColOrderNumber:
		job.OrderID = value
	case ColCustomer:
		job.Customer = value
	case ColQuantity:
		job.Quantity = value
	case ColDeadline:
		job.Deadline = value
	case ColPriority:
		job.Priority = value
	case ColDescription:
		job.Description = value
	case ColProcessedAt:
		job.ProcessedAt = value
	case "created_at":
		job.CreatedAt = value
	case "status":
		job.Status = value
	case "priority_score":
		// Never read back from storage.
	default:
		if value == "" {
			return
		}
		if job.Extra == nil {
			job.Extra = make(map[string]string)
		}
		job.Extra[column] = value
	}
}
