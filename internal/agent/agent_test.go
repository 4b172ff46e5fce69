package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/inkfold/printq/internal/extract"
	"github.com/inkfold/printq/internal/queue"
	"github.com/inkfold/printq/internal/store"
)

var agentRef = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAgent(t *testing.T, extractor *extract.Extractor) (*Agent, store.Store, string) {
	t.Helper()

	dir := t.TempDir()
	storePath := filepath.Join(dir, "queue.json")
	st := store.NewJSONStore(storePath)

	engine := queue.NewEngine(queue.Config{})
	engine.SetNow(func() time.Time { return agentRef })

	a := New(Config{
		StorePath: storePath,
		InboxDir:  filepath.Join(dir, "inbox"),
	}, Deps{
		Engine:    engine,
		Store:     st,
		Extractor: extractor,
		Logger:    testLogger(),
	})
	a.now = func() time.Time { return agentRef }
	return a, st, dir
}

func writeIntake(t *testing.T, dir string, texts ...string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0755))
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Описание заказа"}))
	for i, text := range texts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, text))
	}
	path := filepath.Join(dir, "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func replyFor(job map[string]any) string {
	data, _ := json.Marshal(job)
	return string(data)
}

func TestRunCycleExtractsAndMerges(t *testing.T) {
	var calls int
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return replyFor(map[string]any{
			"order_id": fmt.Sprintf("ORD-%d", calls),
			"customer": "Alpha",
			"quantity": "100",
			"deadline": "25.05.2025",
		}), nil
	})

	a, st, dir := testAgent(t, extract.NewExtractor(completer))
	writeIntake(t, filepath.Join(dir, "inbox"), "business cards for Alpha", "flyers for Alpha")

	result, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Extracted)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, result.Merged)

	jobs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[0].QueuePosition)
	assert.Equal(t, 2, jobs[1].QueuePosition)
}

func TestRunCycleArchivesConsumedWorkbooks(t *testing.T) {
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return replyFor(map[string]any{"order_id": "ORD-1"}), nil
	})

	a, _, dir := testAgent(t, extract.NewExtractor(completer))
	inbox := filepath.Join(dir, "inbox")
	writeIntake(t, inbox, "one order")

	_, err := a.RunCycle(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(inbox, "orders.xlsx"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(inbox, "processed", "orders.xlsx"))
	assert.NoError(t, err)
}

func TestRunCycleCountsFailuresWithoutAborting(t *testing.T) {
	var calls int
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("model unavailable")
		}
		return replyFor(map[string]any{"order_id": "ORD-OK"}), nil
	})

	a, st, dir := testAgent(t, extract.NewExtractor(completer))
	writeIntake(t, filepath.Join(dir, "inbox"), "bad order", "good order")

	result, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Extracted)
	assert.Equal(t, 1, result.Failed)

	jobs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "ORD-OK", jobs[0].OrderID)
}

func TestRunCycleKeepsExistingQueue(t *testing.T) {
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return replyFor(map[string]any{
			"order_id": "ORD-NEW",
			"deadline": "21.05.2025",
		}), nil
	})

	a, st, dir := testAgent(t, extract.NewExtractor(completer))
	require.NoError(t, st.Save(context.Background(), []queue.Job{
		{OrderID: "ORD-OLD", Customer: "Beta", Deadline: "30.05.2025", QueuePosition: 1},
	}))
	writeIntake(t, filepath.Join(dir, "inbox"), "rush order")

	result, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, 1, result.Urgent)

	jobs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "ORD-NEW", jobs[0].OrderID)
	assert.Equal(t, "ORD-OLD", jobs[1].OrderID)
}

func TestRunCycleWithoutExtractorStillSorts(t *testing.T) {
	a, st, _ := testAgent(t, nil)
	require.NoError(t, st.Save(context.Background(), []queue.Job{
		{OrderID: "B", Deadline: "30.05.2025"},
		{OrderID: "A", Deadline: "21.05.2025"},
	}))

	result, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Extracted)
	assert.Equal(t, 2, result.Merged)

	jobs, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", jobs[0].OrderID)
	assert.Equal(t, "B", jobs[1].OrderID)
}

func TestRunCycleReportsProblems(t *testing.T) {
	a, st, _ := testAgent(t, nil)
	require.NoError(t, st.Save(context.Background(), []queue.Job{
		{OrderID: "ORD-1", Customer: "Alpha", Quantity: "10", Deadline: "12.05.2025"},
	}))

	result, err := a.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Problems)

	problems, err := a.Problems(context.Background())
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Problems, "overdue by 8 days")
}

func TestRunCycleExportsWebSnapshot(t *testing.T) {
	a, st, dir := testAgent(t, nil)
	a.cfg.WebExportPath = filepath.Join(dir, "web", "queue.json")
	require.NoError(t, st.Save(context.Background(), []queue.Job{
		{OrderID: "ORD-1", Customer: "Alpha", Quantity: "10", Deadline: "21.05.2025"},
	}))

	_, err := a.RunCycle(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(a.cfg.WebExportPath)
	require.NoError(t, err)

	var snapshot struct {
		GeneratedAt string      `json:"generated_at"`
		Total       int         `json:"total"`
		Urgent      int         `json:"urgent"`
		Jobs        []queue.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, agentRef.Format(time.RFC3339), snapshot.GeneratedAt)
	assert.Equal(t, 1, snapshot.Total)
	assert.Equal(t, 1, snapshot.Urgent)
	require.Len(t, snapshot.Jobs, 1)
	assert.NotContains(t, string(data), "priority_score")
}

func TestRunCycleRecordsHistory(t *testing.T) {
	a, st, dir := testAgent(t, nil)
	history, err := store.OpenHistory(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer history.Close()
	a.deps.History = history

	require.NoError(t, st.Save(context.Background(), []queue.Job{{OrderID: "ORD-1"}}))

	_, err = a.RunCycle(context.Background())
	require.NoError(t, err)

	records, err := a.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Merged)
	assert.Equal(t, 1, records[0].Problems)
}

func TestAddOrderStampsIdentityAndIntake(t *testing.T) {
	a, st, _ := testAgent(t, nil)

	got, err := a.AddOrder(context.Background(), queue.Job{Customer: "Gamma", Quantity: "50"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250520090000", got.OrderID)
	assert.Equal(t, agentRef.Format(time.RFC3339), got.CreatedAt)
	assert.Equal(t, "new", got.Status)
	assert.Equal(t, "normal", got.Priority)
	assert.Equal(t, 1, got.QueuePosition)

	jobs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, got.OrderID, jobs[0].OrderID)
}

func TestAddOrderKeepsCallerFields(t *testing.T) {
	a, _, _ := testAgent(t, nil)

	got, err := a.AddOrder(context.Background(), queue.Job{
		OrderID:  "ORD-X",
		Priority: "high",
		Status:   "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-X", got.OrderID)
	assert.Equal(t, "high", got.Priority)
	assert.Equal(t, "confirmed", got.Status)
}

func TestAddOrderMergesByID(t *testing.T) {
	a, st, _ := testAgent(t, nil)

	first, err := a.AddOrder(context.Background(), queue.Job{OrderID: "ORD-1", Customer: "Alpha"})
	require.NoError(t, err)

	updated, err := a.AddOrder(context.Background(), queue.Job{OrderID: "ORD-1", Customer: "Alpha", Quantity: "500"})
	require.NoError(t, err)
	assert.Equal(t, "500", updated.Quantity)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)

	jobs, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestReportRendersStoredQueue(t *testing.T) {
	a, st, _ := testAgent(t, nil)
	require.NoError(t, st.Save(context.Background(), []queue.Job{
		{OrderID: "ORD-1", Customer: "Alpha", Quantity: "100", Deadline: "21.05.2025", QueuePosition: 1},
	}))

	report, err := a.Report(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(report, "ORD-1 - Alpha"))
}

func TestQueueReturnsStoredJobs(t *testing.T) {
	a, st, _ := testAgent(t, nil)
	require.NoError(t, st.Save(context.Background(), []queue.Job{{OrderID: "ORD-1"}}))

	jobs, err := a.Queue(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "ORD-1", jobs[0].OrderID)
}
