package queue

// Job is one print-shop work item. Fields the upstream extractor does not
// recognize travel in Extra and survive merging and formatting untouched.
type Job struct {
	OrderID       string            `json:"order_id"`
	Customer      string            `json:"customer"`
	Quantity      string            `json:"quantity"`
	Deadline      string            `json:"deadline"`
	Priority      string            `json:"priority"`
	Description   string            `json:"description"`
	QueuePosition int               `json:"queue_position"`
	PriorityScore float64           `json:"priority_score,omitempty"`
	ProcessedAt   string            `json:"processed_at,omitempty"`
	CreatedAt     string            `json:"created_at,omitempty"`
	Status        string            `json:"status,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ProblemReport pairs a job with everything found wrong about it.
type ProblemReport struct {
	Job      Job      `json:"job"`
	Problems []string `json:"problems"`
}
