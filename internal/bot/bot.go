package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inkfold/printq/internal/extract"
	"github.com/inkfold/printq/internal/notify"
	"github.com/inkfold/printq/internal/queue"
)

const helpText = `<b>Available commands:</b>

/queue - show the current print queue
/status ID - check an order by its id
/neworder - create an order from a free-form description
/cancel - abandon the order being created
/help - show this message`

// Orders is the queue surface the bot drives.
type Orders interface {
	Queue(ctx context.Context) ([]queue.Job, error)
	AddOrder(ctx context.Context, job queue.Job) (queue.Job, error)
}

type Config struct {
	AllowedChats []int64
	PollTimeout  time.Duration
	RetryDelay   time.Duration
}

// Bot runs the Telegram command loop. Updates are handled one at a time, so
// the per-chat conversation state needs no locking.
type Bot struct {
	client      *notify.TelegramClient
	orders      Orders
	extractor   *extract.Extractor
	logger      *slog.Logger
	allowed     map[int64]bool
	pollTimeout time.Duration
	retryDelay  time.Duration

	pending map[int64]*conversation
}

type stage int

const (
	awaitText stage = iota
	awaitConfirm
)

type conversation struct {
	stage stage
	job   queue.Job
}

func New(cfg Config, client *notify.TelegramClient, orders Orders, extractor *extract.Extractor, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	allowed := make(map[int64]bool, len(cfg.AllowedChats))
	for _, id := range cfg.AllowedChats {
		allowed[id] = true
	}

	return &Bot{
		client:      client,
		orders:      orders,
		extractor:   extractor,
		logger:      logger,
		allowed:     allowed,
		pollTimeout: cfg.PollTimeout,
		retryDelay:  cfg.RetryDelay,
		pending:     make(map[int64]*conversation),
	}
}

// Run long-polls for updates until the context ends.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.retryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update notify.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	if len(b.allowed) > 0 && !b.allowed[chatID] {
		b.logger.Warn("message from unlisted chat ignored", "chat_id", chatID)
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, text)
		return
	}
	b.handleText(ctx, chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	// Group chats address commands as /queue@botname.
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	args := fields[1:]

	switch command {
	case "/start":
		b.reply(ctx, chatID, "Hello! I manage the print queue. Use /help to see what I can do.")
	case "/help":
		b.reply(ctx, chatID, helpText)
	case "/queue":
		b.cmdQueue(ctx, chatID)
	case "/status":
		b.cmdStatus(ctx, chatID, args)
	case "/neworder":
		b.cmdNewOrder(ctx, chatID)
	case "/cancel":
		b.cmdCancel(ctx, chatID)
	default:
		b.reply(ctx, chatID, "Unknown command. Use /help for the list of commands.")
	}
}

func (b *Bot) cmdQueue(ctx context.Context, chatID int64) {
	jobs, err := b.orders.Queue(ctx)
	if err != nil {
		b.logger.Error("queue lookup failed", "error", err)
		b.reply(ctx, chatID, "Could not read the queue, try again later.")
		return
	}
	if len(jobs) == 0 {
		b.reply(ctx, chatID, "The queue is empty.")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Current print queue:</b>\n\n")
	for i, job := range jobs {
		fmt.Fprintf(&sb, "%d. <b>%s</b>\n", i+1, orderID(job))
		if job.Customer != "" {
			fmt.Fprintf(&sb, "   Customer: %s\n", job.Customer)
		}
		if job.Status != "" {
			fmt.Fprintf(&sb, "   Status: %s\n", job.Status)
		}
		if job.Deadline != "" {
			fmt.Fprintf(&sb, "   Due: %s\n", job.Deadline)
		}
		sb.WriteString("\n")
	}
	b.reply(ctx, chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, "Please pass an order id: /status ID")
		return
	}
	id := args[0]

	jobs, err := b.orders.Queue(ctx)
	if err != nil {
		b.logger.Error("queue lookup failed", "error", err)
		b.reply(ctx, chatID, "Could not read the queue, try again later.")
		return
	}

	for _, job := range jobs {
		if job.OrderID == id {
			b.reply(ctx, chatID, renderOrder(job))
			return
		}
	}
	b.reply(ctx, chatID, fmt.Sprintf("No order with id %s.", id))
}

func (b *Bot) cmdNewOrder(ctx context.Context, chatID int64) {
	if b.extractor == nil {
		b.reply(ctx, chatID, "Order intake is not configured on this instance.")
		return
	}
	b.pending[chatID] = &conversation{stage: awaitText}
	b.reply(ctx, chatID, "Send the order description in free form. Mention the customer, quantity, deadline and anything special about the job.")
}

func (b *Bot) cmdCancel(ctx context.Context, chatID int64) {
	if _, ok := b.pending[chatID]; !ok {
		b.reply(ctx, chatID, "Nothing to cancel.")
		return
	}
	delete(b.pending, chatID)
	b.reply(ctx, chatID, "Order cancelled. Start over with /neworder whenever you like.")
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	conv, ok := b.pending[chatID]
	if !ok {
		b.reply(ctx, chatID, "I only understand commands. Use /help for the list.")
		return
	}

	switch conv.stage {
	case awaitText:
		b.processOrderText(ctx, chatID, conv, text)
	case awaitConfirm:
		b.processConfirmation(ctx, chatID, conv, text)
	}
}

func (b *Bot) processOrderText(ctx context.Context, chatID int64, conv *conversation, text string) {
	b.reply(ctx, chatID, "Reading the order...")

	job, err := b.extractor.Extract(ctx, text)
	if err != nil {
		b.logger.Error("extraction failed", "error", err)
		delete(b.pending, chatID)
		b.reply(ctx, chatID, "Could not read the order, please try again later.")
		return
	}

	conv.job = job
	conv.stage = awaitConfirm
	b.reply(ctx, chatID, renderPreview(job))
}

func (b *Bot) processConfirmation(ctx context.Context, chatID int64, conv *conversation, text string) {
	switch strings.ToLower(text) {
	case "yes", "да":
		delete(b.pending, chatID)
		added, err := b.orders.AddOrder(ctx, conv.job)
		if err != nil {
			b.logger.Error("add order failed", "error", err)
			b.reply(ctx, chatID, "Could not add the order, please try again later.")
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf(
			"Order created with id %s at position %d.\nCheck it anytime with /status %s",
			added.OrderID, added.QueuePosition, added.OrderID))
	case "no", "нет":
		delete(b.pending, chatID)
		b.reply(ctx, chatID, "Order cancelled. Start over with /neworder whenever you like.")
	default:
		b.reply(ctx, chatID, "Please answer yes or no.")
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.client.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

func renderOrder(job queue.Job) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Order %s</b>\n\n", orderID(job))
	if job.Customer != "" {
		fmt.Fprintf(&sb, "Customer: %s\n", job.Customer)
	}
	if job.Status != "" {
		fmt.Fprintf(&sb, "Status: %s\n", job.Status)
	}
	if job.QueuePosition > 0 {
		fmt.Fprintf(&sb, "Queue position: %d\n", job.QueuePosition)
	}
	if job.Quantity != "" {
		fmt.Fprintf(&sb, "Quantity: %s\n", job.Quantity)
	}
	if job.Deadline != "" {
		fmt.Fprintf(&sb, "Due: %s\n", job.Deadline)
	}
	if job.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", job.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderPreview(job queue.Job) string {
	var sb strings.Builder
	sb.WriteString("<b>Extracted order:</b>\n\n")
	if job.Customer != "" {
		fmt.Fprintf(&sb, "Customer: %s\n", job.Customer)
	}
	if job.Quantity != "" {
		fmt.Fprintf(&sb, "Quantity: %s\n", job.Quantity)
	}
	if job.Deadline != "" {
		fmt.Fprintf(&sb, "Due: %s\n", job.Deadline)
	}
	if job.Priority != "" {
		fmt.Fprintf(&sb, "Priority: %s\n", job.Priority)
	}
	if job.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", job.Description)
	}
	sb.WriteString("\nIs everything correct? (yes/no)")
	return sb.String()
}

func orderID(job queue.Job) string {
	if job.OrderID == "" {
		return "(no order number)"
	}
	return job.OrderID
}
