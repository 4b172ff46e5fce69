package queue

import "time"

const (
	DefaultDeadlineWeight         = 0.7
	DefaultPriorityWeight         = 0.3
	DefaultEmergencyThresholdDays = 3
)

// Config is the externally supplied scoring surface. Zero values mean
// "not configured" and fall back to the defaults, so Config{} always works.
type Config struct {
	DeadlineWeight         float64
	PriorityWeight         float64
	EmergencyThresholdDays int
}

// Engine applies the queue formation rules: scoring, ordering, merging and
// anomaly detection. It holds no queue state between calls; callers pass a
// snapshot in and get a new one back.
type Engine struct {
	cfg Config
	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.DeadlineWeight <= 0 {
		cfg.DeadlineWeight = DefaultDeadlineWeight
	}
	if cfg.PriorityWeight <= 0 {
		cfg.PriorityWeight = DefaultPriorityWeight
	}
	if cfg.EmergencyThresholdDays < 1 {
		cfg.EmergencyThresholdDays = DefaultEmergencyThresholdDays
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// SetNow overrides the engine clock. Tests use it to pin "today".
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Urgent returns the jobs due within the emergency threshold, in input
// order. Jobs without a readable deadline are never urgent.
func (e *Engine) Urgent(jobs []Job) []Job {
	now := e.now()
	var urgent []Job
	for _, job := range jobs {
		if DaysRemaining(job.Deadline, now) <= e.cfg.EmergencyThresholdDays {
			urgent = append(urgent, job)
		}
	}
	return urgent
}
