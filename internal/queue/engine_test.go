package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testRef is the fixed reference instant every engine test runs against.
var testRef = time.Date(2025, time.May, 20, 10, 30, 0, 0, time.UTC)

func testEngine() *Engine {
	e := NewEngine(Config{})
	e.now = func() time.Time { return testRef }
	return e
}

func TestNewEngineDefaultsZeroConfig(t *testing.T) {
	e := NewEngine(Config{})

	assert.Equal(t, DefaultDeadlineWeight, e.cfg.DeadlineWeight)
	assert.Equal(t, DefaultPriorityWeight, e.cfg.PriorityWeight)
	assert.Equal(t, DefaultEmergencyThresholdDays, e.cfg.EmergencyThresholdDays)
}

func TestNewEngineKeepsExplicitConfig(t *testing.T) {
	e := NewEngine(Config{
		DeadlineWeight:         0.9,
		PriorityWeight:         0.1,
		EmergencyThresholdDays: 7,
	})

	assert.Equal(t, 0.9, e.cfg.DeadlineWeight)
	assert.Equal(t, 0.1, e.cfg.PriorityWeight)
	assert.Equal(t, 7, e.cfg.EmergencyThresholdDays)
}

func TestNewEngineRejectsNegativeWeights(t *testing.T) {
	e := NewEngine(Config{DeadlineWeight: -1, PriorityWeight: -1, EmergencyThresholdDays: -5})

	assert.Equal(t, DefaultDeadlineWeight, e.cfg.DeadlineWeight)
	assert.Equal(t, DefaultPriorityWeight, e.cfg.PriorityWeight)
	assert.Equal(t, DefaultEmergencyThresholdDays, e.cfg.EmergencyThresholdDays)
}

func TestUrgentSelection(t *testing.T) {
	e := testEngine()

	jobs := []Job{
		{OrderID: "due-now", Deadline: "20.05.2025"},
		{OrderID: "edge", Deadline: "23.05.2025"},
		{OrderID: "later", Deadline: "24.05.2025"},
		{OrderID: "undated"},
	}

	assert.Equal(t, []string{"due-now", "edge"}, ids(e.Urgent(jobs)))
}
