package queue

import "sort"

// Sort returns the queue in priority order with fresh scores and a
// contiguous 1..N position numbering. Scores are always recomputed here and
// never read back from storage. The input slice is left untouched.
func (e *Engine) Sort(jobs []Job) []Job {
	sorted := make([]Job, len(jobs))
	copy(sorted, jobs)

	for i := range sorted {
		sorted[i].PriorityScore = e.Score(sorted[i])
	}

	// Stable: equal scores keep their arrival order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriorityScore < sorted[j].PriorityScore
	})

	for i := range sorted {
		sorted[i].QueuePosition = i + 1
	}

	return sorted
}
