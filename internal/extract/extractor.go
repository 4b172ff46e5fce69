package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkfold/printq/internal/queue"
)

const extractionPrompt = `You are an order intake assistant for a print shop. Extract the order fields from the text below.

OUTPUT FORMAT: Return ONLY valid JSON matching this schema:
{
  "order_id": "order number as written, empty string if absent",
  "customer": "customer or company name",
  "quantity": "quantity, e.g. 500",
  "deadline": "due date in DD.MM.YYYY format",
  "priority": "urgency in the customer's own words, e.g. urgent, normal, low",
  "description": "short description of what to print"
}

RULES:
1. Use empty strings for fields the text does not mention
2. Keep the customer's original wording for priority, do not translate it
3. Write dates as DD.MM.YYYY when the text gives a full date, otherwise copy the text as written
4. Do not invent values

ORDER TEXT:
%s

Return ONLY valid JSON, no markdown formatting.`

// Completer is the slice of the API client the extractor needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor turns free-text order descriptions into structured jobs.
type Extractor struct {
	client Completer
	now    func() time.Time
}

// Failure pairs an input text with the reason it could not be extracted.
type Failure struct {
	Text string
	Err  error
}

func NewExtractor(client Completer) *Extractor {
	return &Extractor{
		client: client,
		now:    time.Now,
	}
}

func (x *Extractor) Extract(ctx context.Context, text string) (queue.Job, error) {
	raw, err := x.client.Complete(ctx, fmt.Sprintf(extractionPrompt, text))
	if err != nil {
		return queue.Job{}, fmt.Errorf("extraction request failed: %w", err)
	}

	payload, err := sliceJSON(raw)
	if err != nil {
		return queue.Job{}, err
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return queue.Job{}, fmt.Errorf("failed to parse extracted fields: %w", err)
	}

	return x.normalize(fields), nil
}

// ExtractBatch extracts every text it can, collecting failures instead of
// aborting. The jobs and failures together account for all inputs.
func (x *Extractor) ExtractBatch(ctx context.Context, texts []string) ([]queue.Job, []Failure) {
	var jobs []queue.Job
	var failures []Failure

	for _, text := range texts {
		job, err := x.Extract(ctx, text)
		if err != nil {
			failures = append(failures, Failure{Text: text, Err: err})
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, failures
}

func sliceJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no valid json object found in response")
	}
	return text[start : end+1], nil
}

func (x *Extractor) normalize(fields map[string]any) queue.Job {
	var job queue.Job

	for key, value := range fields {
		s := stringify(value)
		switch key {
		case "order_id":
			job.OrderID = s
		case "customer":
			job.Customer = s
		case "quantity":
			job.Quantity = s
		case "deadline":
			job.Deadline = normalizeDeadline(s)
		case "priority":
			job.Priority = s
		case "description":
			job.Description = s
		default:
			if s == "" {
				continue
			}
			if job.Extra == nil {
				job.Extra = make(map[string]string)
			}
			job.Extra[key] = s
		}
	}

	if job.OrderID == "" {
		job.OrderID = "TMP-" + uuid.NewString()[:8]
	}
	if job.Priority == "" {
		job.Priority = "normal"
	}
	job.ProcessedAt = x.now().Format(time.RFC3339)

	return job
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Layouts the model is known to produce despite the prompt, tried in order.
// Day-first forms come before month-first so ambiguous dates stay day-first.
var deadlineLayouts = []string{
	"2.1.2006",
	"2.1.06",
	"2/1/2006",
	"2/1/06",
	"2006-1-2",
	"06-1-2",
	"1/2/2006",
	"1/2/06",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// normalizeDeadline reformats anything parseable to DD.MM.YYYY and passes
// unparseable text through untouched for the queue to flag.
func normalizeDeadline(s string) string {
	if s == "" {
		return s
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(queue.DateLayout)
		}
	}
	return s
}
