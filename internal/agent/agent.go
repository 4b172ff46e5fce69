package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/inkfold/printq/internal/extract"
	"github.com/inkfold/printq/internal/notify"
	"github.com/inkfold/printq/internal/queue"
	"github.com/inkfold/printq/internal/remote"
	"github.com/inkfold/printq/internal/store"
)

type Config struct {
	StorePath     string
	InboxDir      string
	Interval      time.Duration
	SummaryAt     string
	WebExportPath string
}

// Deps are the wired components. Store and Engine are required, the rest is
// optional and skipped when nil.
type Deps struct {
	Engine    *queue.Engine
	Store     store.Store
	History   *store.History
	Extractor *extract.Extractor
	Remote    *remote.Client
	Notifier  *notify.Notifier
	Logger    *slog.Logger
}

// Agent runs the merge cycle: pull intake, extract, merge into the stored
// queue, flag problems, push and notify. All queue writes are serialized
// through one mutex.
type Agent struct {
	cfg  Config
	deps Deps
	now  func() time.Time

	mu            sync.Mutex
	cyclesRun     int
	summarySentOn string
}

type CycleResult struct {
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
	Merged    int `json:"merged"`
	Problems  int `json:"problems"`
	Urgent    int `json:"urgent"`
}

func New(cfg Config, deps Deps) *Agent {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	return &Agent{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
	}
}

// RunCycle executes one merge cycle. Extraction failures are carried in the
// result; only load and save failures abort the cycle.
func (a *Agent) RunCycle(ctx context.Context) (CycleResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	startedAt := a.now()
	var result CycleResult

	var extracted []queue.Job
	var consumed []string
	if a.deps.Extractor != nil {
		if a.deps.Remote != nil {
			if err := a.pullIntake(ctx); err != nil {
				a.deps.Logger.Warn("remote pull failed", "error", err)
			}
		}

		texts, files, err := a.collectIntake()
		if err != nil {
			a.deps.Logger.Warn("intake collection failed", "error", err)
		}
		consumed = files

		jobs, failures := a.deps.Extractor.ExtractBatch(ctx, texts)
		extracted = jobs
		result.Extracted = len(jobs)
		result.Failed = len(failures)
		for _, f := range failures {
			a.deps.Logger.Warn("extraction failed", "text", f.Text, "error", f.Err)
		}
	}

	current, err := a.deps.Store.Load(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load queue: %w", err)
	}

	merged := a.deps.Engine.Merge(extracted, current)
	problems := a.deps.Engine.FindProblems(merged)
	urgent := a.deps.Engine.Urgent(merged)
	result.Merged = len(merged)
	result.Problems = len(problems)
	result.Urgent = len(urgent)

	if err := a.deps.Store.Save(ctx, merged); err != nil {
		return result, fmt.Errorf("failed to save queue: %w", err)
	}

	a.archiveConsumed(consumed)

	if a.deps.Remote != nil {
		if err := a.pushSnapshot(ctx); err != nil {
			a.deps.Logger.Warn("remote push failed", "error", err)
		}
	}

	if a.deps.Notifier != nil {
		a.deps.Notifier.QueueUpdated(len(merged), len(urgent))
		a.deps.Notifier.UrgentJobs(urgent)
		a.deps.Notifier.ProblemsFound(problems)
	}

	if a.cfg.WebExportPath != "" {
		if err := a.exportWebSnapshot(merged, problems); err != nil {
			a.deps.Logger.Warn("web export failed", "error", err)
		}
	}

	if a.deps.History != nil {
		note := ""
		if result.Failed > 0 {
			note = fmt.Sprintf("%d extraction failures", result.Failed)
		}
		if err := a.deps.History.Record(ctx, store.CycleRecord{
			StartedAt: startedAt,
			Extracted: result.Extracted,
			Failed:    result.Failed,
			Merged:    result.Merged,
			Problems:  result.Problems,
			Note:      note,
		}); err != nil {
			a.deps.Logger.Warn("history record failed", "error", err)
		}
	}

	a.cyclesRun++
	a.deps.Logger.Info("cycle complete",
		"extracted", result.Extracted, "failed", result.Failed,
		"merged", result.Merged, "problems", result.Problems, "urgent", result.Urgent)

	return result, nil
}

// AddOrder merges a single order into the stored queue, stamping identity
// and intake fields when absent. Returns the job as it landed in the queue.
func (a *Agent) AddOrder(ctx context.Context, job queue.Job) (queue.Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if job.OrderID == "" {
		job.OrderID = "ORD-" + now.Format("20060102150405")
	}
	if job.CreatedAt == "" {
		job.CreatedAt = now.Format(time.RFC3339)
	}
	if job.Status == "" {
		job.Status = "new"
	}
	if job.Priority == "" {
		job.Priority = "normal"
	}

	current, err := a.deps.Store.Load(ctx)
	if err != nil {
		return queue.Job{}, fmt.Errorf("failed to load queue: %w", err)
	}

	merged := a.deps.Engine.Merge([]queue.Job{job}, current)
	if err := a.deps.Store.Save(ctx, merged); err != nil {
		return queue.Job{}, fmt.Errorf("failed to save queue: %w", err)
	}

	for _, j := range merged {
		if j.OrderID == job.OrderID {
			return j, nil
		}
	}
	return job, nil
}

// Queue returns the stored queue snapshot.
func (a *Agent) Queue(ctx context.Context) ([]queue.Job, error) {
	return a.deps.Store.Load(ctx)
}

// Problems returns the anomaly reports for the stored queue.
func (a *Agent) Problems(ctx context.Context) ([]queue.ProblemReport, error) {
	jobs, err := a.deps.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return a.deps.Engine.FindProblems(jobs), nil
}

// Report renders the operator report for the stored queue.
func (a *Agent) Report(ctx context.Context) (string, error) {
	jobs, err := a.deps.Store.Load(ctx)
	if err != nil {
		return "", err
	}
	return a.deps.Engine.RenderReport(jobs), nil
}

// History returns the most recent cycle records.
func (a *Agent) History(ctx context.Context, limit int) ([]store.CycleRecord, error) {
	if a.deps.History == nil {
		return nil, nil
	}
	return a.deps.History.Recent(ctx, limit)
}

// Run loops RunCycle on the configured interval until the context ends,
// firing the daily summary when the wall clock reaches SummaryAt.
func (a *Agent) Run(ctx context.Context) error {
	if _, err := a.RunCycle(ctx); err != nil {
		a.deps.Logger.Error("cycle failed", "error", err)
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	summaryTicker := time.NewTicker(time.Minute)
	defer summaryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := a.RunCycle(ctx); err != nil {
				a.deps.Logger.Error("cycle failed", "error", err)
			}
		case <-summaryTicker.C:
			a.maybeSendSummary(ctx)
		}
	}
}

func (a *Agent) maybeSendSummary(ctx context.Context) {
	if a.cfg.SummaryAt == "" || a.deps.Notifier == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if now.Format("15:04") != a.cfg.SummaryAt {
		return
	}
	day := now.Format("2006-01-02")
	if a.summarySentOn == day {
		return
	}
	a.summarySentOn = day

	jobs, err := a.deps.Store.Load(ctx)
	if err != nil {
		a.deps.Logger.Warn("summary load failed", "error", err)
		return
	}

	a.deps.Notifier.DailySummary(notify.Summary{
		Date:     now.Format(queue.DateLayout),
		Total:    len(jobs),
		Urgent:   len(a.deps.Engine.Urgent(jobs)),
		Problems: len(a.deps.Engine.FindProblems(jobs)),
		Cycles:   a.cyclesRun,
	})
	a.cyclesRun = 0
}

func (a *Agent) pullIntake(ctx context.Context) error {
	files, err := a.deps.Remote.List(ctx)
	if err != nil {
		return err
	}

	snapshotName := filepath.Base(a.cfg.StorePath)
	for _, f := range files {
		if f.Name == snapshotName || !strings.HasSuffix(strings.ToLower(f.Name), ".xlsx") {
			continue
		}
		local := filepath.Join(a.cfg.InboxDir, f.Name)
		if err := a.deps.Remote.Download(ctx, f.Name, local); err != nil {
			a.deps.Logger.Warn("download failed", "file", f.Name, "error", err)
			continue
		}
		if err := a.deps.Remote.Delete(ctx, f.Name); err != nil {
			a.deps.Logger.Warn("remote cleanup failed", "file", f.Name, "error", err)
		}
	}
	return nil
}

func (a *Agent) pushSnapshot(ctx context.Context) error {
	if a.cfg.StorePath == "" {
		return nil
	}
	if _, err := os.Stat(a.cfg.StorePath); err != nil {
		return nil
	}
	return a.deps.Remote.Upload(ctx, a.cfg.StorePath, filepath.Base(a.cfg.StorePath))
}

// collectIntake reads order texts out of every workbook waiting in the
// inbox directory and returns the file paths so they can be archived after
// a successful save.
func (a *Agent) collectIntake() ([]string, []string, error) {
	if a.cfg.InboxDir == "" {
		return nil, nil, nil
	}

	entries, err := os.ReadDir(a.cfg.InboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var texts []string
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".xlsx") {
			continue
		}
		path := filepath.Join(a.cfg.InboxDir, entry.Name())
		fileTexts, err := store.ReadDescriptions(path)
		if err != nil {
			a.deps.Logger.Warn("intake workbook unreadable", "file", entry.Name(), "error", err)
			continue
		}
		texts = append(texts, fileTexts...)
		files = append(files, path)
	}
	return texts, files, nil
}

func (a *Agent) archiveConsumed(files []string) {
	if len(files) == 0 {
		return
	}

	processedDir := filepath.Join(a.cfg.InboxDir, "processed")
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		a.deps.Logger.Warn("failed to create processed directory", "error", err)
		return
	}
	for _, path := range files {
		dest := filepath.Join(processedDir, filepath.Base(path))
		if err := os.Rename(path, dest); err != nil {
			a.deps.Logger.Warn("failed to archive intake file", "file", path, "error", err)
		}
	}
}

func (a *Agent) exportWebSnapshot(jobs []queue.Job, problems []queue.ProblemReport) error {
	out := make([]queue.Job, len(jobs))
	copy(out, jobs)
	for i := range out {
		out[i].PriorityScore = 0
	}

	snapshot := struct {
		GeneratedAt string                `json:"generated_at"`
		Total       int                   `json:"total"`
		Urgent      int                   `json:"urgent"`
		Jobs        []queue.Job           `json:"jobs"`
		Problems    []queue.ProblemReport `json:"problems"`
	}{
		GeneratedAt: a.now().Format(time.RFC3339),
		Total:       len(out),
		Urgent:      len(a.deps.Engine.Urgent(out)),
		Jobs:        out,
		Problems:    problems,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if dir := filepath.Dir(a.cfg.WebExportPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(a.cfg.WebExportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
