package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func fixedReply(reply string) completerFunc {
	return func(context.Context, string) (string, error) {
		return reply, nil
	}
}

var extractRef = time.Date(2025, time.May, 20, 10, 30, 0, 0, time.UTC)

func testExtractor(c Completer) *Extractor {
	x := NewExtractor(c)
	x.now = func() time.Time { return extractRef }
	return x
}

func TestExtractParsesFencedReply(t *testing.T) {
	reply := "```json\n{\"order_id\": \"ORD-42\", \"customer\": \"Alpha Press\", \"quantity\": 500, \"deadline\": \"2025-06-15\", \"priority\": \"срочно\", \"description\": \"business cards\"}\n```"
	x := testExtractor(fixedReply(reply))

	job, err := x.Extract(context.Background(), "500 cards for Alpha Press by June 15, urgent")

	require.NoError(t, err)
	assert.Equal(t, "ORD-42", job.OrderID)
	assert.Equal(t, "Alpha Press", job.Customer)
	assert.Equal(t, "500", job.Quantity)
	assert.Equal(t, "15.06.2025", job.Deadline)
	assert.Equal(t, "срочно", job.Priority)
	assert.Equal(t, "business cards", job.Description)
	assert.Equal(t, "2025-05-20T10:30:00Z", job.ProcessedAt)
}

func TestExtractPromptCarriesOrderText(t *testing.T) {
	var gotPrompt string
	x := testExtractor(completerFunc(func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return `{"order_id": "1"}`, nil
	}))

	_, err := x.Extract(context.Background(), "flyers for the spring fair")

	require.NoError(t, err)
	assert.Contains(t, gotPrompt, "flyers for the spring fair")
	assert.Contains(t, gotPrompt, "ONLY valid JSON")
}

func TestExtractGeneratesTemporaryID(t *testing.T) {
	x := testExtractor(fixedReply(`{"customer": "Walk-in"}`))

	job, err := x.Extract(context.Background(), "no order number given")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(job.OrderID, "TMP-"))
	assert.Len(t, job.OrderID, len("TMP-")+8)
}

func TestExtractDefaultsPriority(t *testing.T) {
	x := testExtractor(fixedReply(`{"order_id": "1", "priority": ""}`))

	job, err := x.Extract(context.Background(), "plain order")

	require.NoError(t, err)
	assert.Equal(t, "normal", job.Priority)
}

func TestExtractKeepsUnparseableDeadline(t *testing.T) {
	x := testExtractor(fixedReply(`{"order_id": "1", "deadline": "как можно скорее"}`))

	job, err := x.Extract(context.Background(), "asap order")

	require.NoError(t, err)
	assert.Equal(t, "как можно скорее", job.Deadline)
}

func TestExtractUnknownKeysLandInExtra(t *testing.T) {
	x := testExtractor(fixedReply(`{"order_id": "1", "paper": "A4", "note": ""}`))

	job, err := x.Extract(context.Background(), "A4 job")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"paper": "A4"}, job.Extra)
}

func TestExtractRejectsReplyWithoutJSON(t *testing.T) {
	x := testExtractor(fixedReply("sorry, I cannot help with that"))

	_, err := x.Extract(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid json object")
}

func TestExtractWrapsClientError(t *testing.T) {
	boom := errors.New("connection refused")
	x := testExtractor(completerFunc(func(context.Context, string) (string, error) {
		return "", boom
	}))

	_, err := x.Extract(context.Background(), "anything")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestExtractBatchCollectsFailures(t *testing.T) {
	x := testExtractor(completerFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "bad input") {
			return "not json", nil
		}
		return `{"order_id": "1"}`, nil
	}))

	jobs, failures := x.ExtractBatch(context.Background(), []string{"good input", "bad input", "good input"})

	assert.Len(t, jobs, 2)
	require.Len(t, failures, 1)
	assert.Equal(t, "bad input", failures[0].Text)
	assert.Error(t, failures[0].Err)
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string trimmed", "  Alpha  ", "Alpha"},
		{"whole number", float64(500), "500"},
		{"fractional number", 2.5, "2.5"},
		{"bool", true, "true"},
		{"null", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stringify(tt.value))
		})
	}
}

func TestNormalizeDeadline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "15.06.2025", "15.06.2025"},
		{"unpadded dots", "5.6.2025", "05.06.2025"},
		{"two digit year", "15.06.25", "15.06.2025"},
		{"slashes day first", "15/06/2025", "15.06.2025"},
		{"iso date", "2025-06-15", "15.06.2025"},
		{"iso datetime", "2025-06-15T12:00:00", "15.06.2025"},
		{"month name", "15 Jun 2025", "15.06.2025"},
		{"full month name", "15 June 2025", "15.06.2025"},
		{"month first fallback", "6/25/2025", "25.06.2025"},
		{"free text untouched", "end of next week", "end of next week"},
		{"empty untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDeadline(tt.in))
		})
	}
}

func TestClientComplete(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": `{"ok": true}`}}}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient()
	c.SetAPIKey("test-key")
	c.SetBaseURL(srv.URL)

	got, err := c.Complete(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, got)
	assert.Contains(t, gotURL, "/models/gemini-2.0-flash:generateContent")
	assert.Contains(t, gotURL, "key=test-key")
}

func TestClientRequiresAPIKey(t *testing.T) {
	c := NewClient()

	_, err := c.Complete(context.Background(), "hello")

	require.Error(t, err)
	assert.False(t, c.IsConfigured())
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := NewClient()
	c.SetAPIKey("bad-key")
	c.SetBaseURL(srv.URL)

	_, err := c.Complete(context.Background(), "hello")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
}

func TestClientTestConnectionInvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := NewClient()
	c.SetAPIKey("bad-key")
	c.SetBaseURL(srv.URL)

	err := c.TestConnection(context.Background())

	require.Error(t, err)
	assert.Equal(t, "invalid api key", err.Error())
}
