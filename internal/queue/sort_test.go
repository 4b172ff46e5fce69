package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(jobs []Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.OrderID)
	}
	return out
}

func TestSortOrdersByScore(t *testing.T) {
	e := testEngine()

	jobs := []Job{
		{OrderID: "slow", Deadline: "30.06.2025", Priority: "low"},
		{OrderID: "soon", Deadline: "21.05.2025", Priority: "urgent"},
		{OrderID: "mid", Deadline: "28.05.2025"},
	}

	sorted := e.Sort(jobs)

	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"soon", "mid", "slow"}, ids(sorted))
	for i, job := range sorted {
		assert.Equal(t, i+1, job.QueuePosition)
		assert.InDelta(t, e.Score(job), job.PriorityScore, 1e-9)
	}
}

func TestSortStableOnTies(t *testing.T) {
	e := testEngine()

	jobs := []Job{
		{OrderID: "first", Deadline: "25.05.2025"},
		{OrderID: "second", Deadline: "25.05.2025"},
		{OrderID: "third", Deadline: "25.05.2025"},
	}

	// Identical scores: arrival order is the tie-break.
	assert.Equal(t, []string{"first", "second", "third"}, ids(e.Sort(jobs)))
}

func TestSortIdempotent(t *testing.T) {
	e := testEngine()

	jobs := []Job{
		{OrderID: "c", Deadline: "01.06.2025"},
		{OrderID: "a", Deadline: "21.05.2025"},
		{OrderID: "b", Deadline: "21.05.2025", Priority: "low"},
	}

	once := e.Sort(jobs)
	twice := e.Sort(once)

	assert.Equal(t, once, twice)
}

func TestSortOverwritesStaleScoresAndPositions(t *testing.T) {
	e := testEngine()

	jobs := []Job{
		{OrderID: "a", Deadline: "25.05.2025", PriorityScore: 0.001, QueuePosition: 99},
		{OrderID: "b", Deadline: "21.05.2025", PriorityScore: 500, QueuePosition: 42},
	}

	sorted := e.Sort(jobs)

	// Stored values are never trusted: b's fresh score wins.
	assert.Equal(t, []string{"b", "a"}, ids(sorted))
	assert.Equal(t, 1, sorted[0].QueuePosition)
	assert.Equal(t, 2, sorted[1].QueuePosition)
}

func TestSortLeavesInputAlone(t *testing.T) {
	e := testEngine()

	jobs := []Job{
		{OrderID: "a", Deadline: "25.05.2025"},
		{OrderID: "b", Deadline: "21.05.2025"},
	}

	e.Sort(jobs)

	assert.Equal(t, "a", jobs[0].OrderID)
	assert.Zero(t, jobs[0].QueuePosition)
	assert.Zero(t, jobs[0].PriorityScore)
}

func TestSortEmpty(t *testing.T) {
	e := testEngine()

	assert.Empty(t, e.Sort(nil))
	assert.Empty(t, e.Sort([]Job{}))
}
