package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/inkfold/printq/internal/queue"
)

type Config struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	QueueSize  int
}

type task struct {
	event   Event
	text    string
	target  *Target
	payload *Payload
	attempt int
}

// Notifier fans queue events out to the notification chat and the configured
// webhook targets through a small retrying worker pool.
type Notifier struct {
	telegram   *TelegramClient
	targets    []Target
	httpClient *http.Client
	logger     *slog.Logger
	workers    int
	retryCount int
	retryDelay time.Duration
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewNotifier(cfg Config, telegram *TelegramClient, targets []Target, logger *slog.Logger) *Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &Notifier{
		telegram: telegram,
		targets:  targets,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:     logger,
		workers:    cfg.Workers,
		retryCount: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		queue:      make(chan *task, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

func (n *Notifier) Start() {
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
}

func (n *Notifier) Stop() {
	close(n.stopCh)
	n.wg.Wait()
}

func (n *Notifier) QueueUpdated(total, urgent int) {
	n.enqueue(EventQueueUpdated, "", map[string]int{
		"total":  total,
		"urgent": urgent,
	})
}

func (n *Notifier) UrgentJobs(jobs []queue.Job) {
	if len(jobs) == 0 {
		return
	}
	n.enqueue(EventUrgentJobs, RenderUrgent(jobs, time.Now()), jobs)
}

func (n *Notifier) ProblemsFound(reports []queue.ProblemReport) {
	if len(reports) == 0 {
		return
	}
	n.enqueue(EventProblemsFound, RenderProblems(reports), reports)
}

func (n *Notifier) DailySummary(s Summary) {
	n.enqueue(EventDailySummary, RenderSummary(s), s)
}

func (n *Notifier) enqueue(event Event, text string, data any) {
	now := time.Now()

	if n.telegram != nil && text != "" {
		n.push(&task{event: event, text: text})
	}

	for i := range n.targets {
		target := n.targets[i]
		if !target.wants(event) {
			continue
		}
		n.push(&task{
			event:  event,
			target: &target,
			payload: &Payload{
				Event:     string(event),
				Timestamp: now,
				Data:      data,
			},
		})
	}
}

func (n *Notifier) push(t *task) {
	select {
	case n.queue <- t:
	default:
		n.logger.Warn("notification queue full, dropping event", "event", t.event)
	}
}

func (n *Notifier) worker(id int) {
	defer n.wg.Done()

	for {
		select {
		case <-n.stopCh:
			return
		case t := <-n.queue:
			if err := n.sendWithRetry(t); err != nil {
				n.logger.Error("notification delivery failed",
					"worker", id, "event", t.event, "attempts", t.attempt, "error", err)
			}
		}
	}
}

func (n *Notifier) sendWithRetry(t *task) error {
	var lastErr error
	for t.attempt < n.retryCount {
		t.attempt++

		err := n.deliver(t)
		if err == nil {
			return nil
		}
		lastErr = err

		if isClientError(err) {
			return err
		}

		if t.attempt < n.retryCount {
			backoff := n.retryDelay * time.Duration(1<<(t.attempt-1))
			select {
			case <-n.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (n *Notifier) deliver(t *task) error {
	if t.target != nil {
		return n.sendRequest(*t.target, t.payload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.httpClient.Timeout)
	defer cancel()
	return n.telegram.Send(ctx, t.text)
}

// Summary is the once-a-day digest of queue state.
type Summary struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Urgent   int    `json:"urgent"`
	Problems int    `json:"problems"`
	Cycles   int    `json:"cycles"`
}

func RenderUrgent(jobs []queue.Job, now time.Time) string {
	var b strings.Builder
	b.WriteString("<b>Urgent print jobs</b>\n")
	for i, job := range jobs {
		fmt.Fprintf(&b, "%d. %s", i+1, orderLabel(job))
		if days := queue.DaysRemaining(job.Deadline, now); days != queue.NoDeadline {
			fmt.Fprintf(&b, " (%d days remaining)", days)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func RenderProblems(reports []queue.ProblemReport) string {
	var b strings.Builder
	b.WriteString("<b>Orders needing attention</b>\n")
	for i, report := range reports {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, orderLabel(report.Job), strings.Join(report.Problems, ", "))
	}
	return b.String()
}

func RenderSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Daily queue summary for %s</b>\n", s.Date)
	fmt.Fprintf(&b, "Jobs in queue: %d\n", s.Total)
	fmt.Fprintf(&b, "Urgent: %d\n", s.Urgent)
	fmt.Fprintf(&b, "Problems: %d\n", s.Problems)
	fmt.Fprintf(&b, "Cycles run: %d\n", s.Cycles)
	return b.String()
}

func orderLabel(job queue.Job) string {
	id := job.OrderID
	if id == "" {
		id = "(no order number)"
	}
	if job.Customer != "" {
		return id + " - " + job.Customer
	}
	return id
}
