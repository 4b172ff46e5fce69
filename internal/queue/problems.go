package queue

import "fmt"

// FindProblems scans a queue snapshot for data-quality issues without
// touching it. A job can carry several problems at once; clean jobs are
// omitted from the result.
func (e *Engine) FindProblems(jobs []Job) []ProblemReport {
	var reports []ProblemReport
	for _, job := range jobs {
		problems := e.jobProblems(job)
		if len(problems) > 0 {
			reports = append(reports, ProblemReport{Job: job, Problems: problems})
		}
	}
	return reports
}

func (e *Engine) jobProblems(job Job) []string {
	var problems []string

	if job.OrderID == "" {
		problems = append(problems, "missing order number")
	}
	if job.Customer == "" {
		problems = append(problems, "missing customer")
	}
	if job.Quantity == "" {
		problems = append(problems, "missing quantity")
	}

	if job.Deadline == "" {
		problems = append(problems, "missing deadline")
	} else if days, ok := deadlineDays(job.Deadline, e.now()); !ok {
		problems = append(problems, "invalid deadline format")
	} else if days < 0 {
		// Literal unclamped magnitude, unlike the clamped scoring path.
		problems = append(problems, fmt.Sprintf("overdue by %d days", -days))
	} else if days <= e.cfg.EmergencyThresholdDays {
		problems = append(problems, fmt.Sprintf("urgent, %d days remaining", days))
	}

	return problems
}
