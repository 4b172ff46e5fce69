package queue

import (
	"fmt"
	"strings"
	"time"
)

// RenderReport builds the plain-text operator report: totals, the jobs
// inside the emergency window, then the full ordered listing.
func (e *Engine) RenderReport(jobs []Job) string {
	now := e.now()
	var b strings.Builder

	b.WriteString("PRINT QUEUE REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Jobs in queue: %d\n", len(jobs))

	urgent := e.Urgent(jobs)
	if len(urgent) > 0 {
		fmt.Fprintf(&b, "\nURGENT (within %d days):\n", e.cfg.EmergencyThresholdDays)
		for i, job := range urgent {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, reportLine(job, now))
		}
	}

	if len(jobs) > 0 {
		b.WriteString("\nFULL QUEUE:\n")
		for _, job := range jobs {
			fmt.Fprintf(&b, "  %d. %s\n", job.QueuePosition, reportLine(job, now))
		}
	}

	return b.String()
}

func reportLine(job Job, now time.Time) string {
	var b strings.Builder

	if job.OrderID != "" {
		b.WriteString(job.OrderID)
	} else {
		b.WriteString("(no order number)")
	}
	if job.Customer != "" {
		fmt.Fprintf(&b, " - %s", job.Customer)
	}
	if job.Quantity != "" {
		fmt.Fprintf(&b, ", %s", job.Quantity)
	}

	if job.Deadline == "" {
		b.WriteString(", no deadline")
		return b.String()
	}

	fmt.Fprintf(&b, ", due %s", job.Deadline)
	if days := DaysRemaining(job.Deadline, now); days != NoDeadline {
		fmt.Fprintf(&b, " (%d days remaining)", days)
	}
	return b.String()
}
