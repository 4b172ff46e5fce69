package queue

// Merge reconciles a batch of freshly extracted jobs against the current
// queue. Unknown ids append; known ids are replaced in place with the
// incoming fields, keeping the existing position until the re-sort and the
// existing creation stamps for good. Jobs without an id can never match an
// existing entry and always insert. The result is re-sorted and re-numbered.
func (e *Engine) Merge(newJobs, current []Job) []Job {
	merged := make([]Job, len(current))
	copy(merged, current)

	index := make(map[string]int, len(merged))
	for i, job := range merged {
		if job.OrderID != "" {
			index[job.OrderID] = i
		}
	}

	for _, incoming := range newJobs {
		if incoming.OrderID == "" {
			merged = append(merged, incoming)
			continue
		}

		i, known := index[incoming.OrderID]
		if !known {
			index[incoming.OrderID] = len(merged)
			merged = append(merged, incoming)
			continue
		}

		existing := merged[i]
		if existing.QueuePosition != 0 {
			// Display continuity only; the sort below renumbers anyway.
			incoming.QueuePosition = existing.QueuePosition
		}
		if existing.CreatedAt != "" {
			incoming.CreatedAt = existing.CreatedAt
		}
		if existing.ProcessedAt != "" {
			incoming.ProcessedAt = existing.ProcessedAt
		}
		merged[i] = incoming
	}

	return e.Sort(merged)
}
