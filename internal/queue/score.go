package queue

import "strings"

const (
	urgentModifier = 0.5
	normalModifier = 1.0
	lowModifier    = 2.0

	emergencyBucket = 1
	normalBucket    = 3
)

var (
	urgentKeywords = []string{"urgent", "high", "срочно", "высокий"}
	lowKeywords    = []string{"low", "низкий"}
)

// Score derives the ordering score for one job; lower sorts earlier. The
// deadline term is linear in days remaining, the priority term is the
// two-band urgency bucket scaled by the keyword modifier.
func (e *Engine) Score(job Job) float64 {
	days := DaysRemaining(job.Deadline, e.now())

	bucket := float64(normalBucket)
	if days <= e.cfg.EmergencyThresholdDays {
		bucket = emergencyBucket
	}

	return float64(days)*e.cfg.DeadlineWeight + bucket*priorityModifier(job.Priority)*e.cfg.PriorityWeight
}

// priorityModifier reads the free-text hint as a keyword signal. Matching is
// substring-based on purpose: hints arrive as arbitrary phrasing, in English
// or Russian, and the urgent group wins over the low group.
func priorityModifier(hint string) float64 {
	h := strings.ToLower(hint)
	for _, kw := range urgentKeywords {
		if strings.Contains(h, kw) {
			return urgentModifier
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(h, kw) {
			return lowModifier
		}
	}
	return normalModifier
}
