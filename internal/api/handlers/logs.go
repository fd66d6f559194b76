package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scanworth/scanworth/internal/sink"
)

// LogsHandler accepts diagnostic log batches from companion clients (the CLI,
// scanner apps) and forwards them to the configured sink.
type LogsHandler struct {
	sink sink.Sink
}

// NewLogsHandler creates a new LogsHandler.
func NewLogsHandler(s sink.Sink) *LogsHandler {
	return &LogsHandler{sink: s}
}

// LogLine is a single client-side diagnostic line.
type LogLine struct {
	Time    time.Time `json:"time,omitempty" doc:"Client timestamp, defaults to server receipt time"`
	Term    string    `json:"term,omitempty" doc:"Search term the line relates to"`
	Message string    `json:"message" minLength:"1" doc:"Log line text"`
}

// LogsInput is the request body for the log intake endpoint.
type LogsInput struct {
	Body struct {
		Lines []LogLine `json:"lines" minItems:"1" doc:"Batch of diagnostic lines"`
	}
}

// LogsOutput acknowledges an accepted batch.
type LogsOutput struct {
	Status int
	Body   struct {
		Accepted int `json:"accepted" doc:"Number of lines accepted"`
	}
}

// Ingest accepts a log batch. Delivery to the sink is best-effort; the batch
// is acknowledged as soon as it is handed off.
func (h *LogsHandler) Ingest(ctx context.Context, input *LogsInput) (*LogsOutput, error) {
	now := time.Now()
	entries := make([]sink.Entry, 0, len(input.Body.Lines))
	for _, l := range input.Body.Lines {
		ts := l.Time
		if ts.IsZero() {
			ts = now
		}
		entries = append(entries, sink.Entry{Time: ts, Term: l.Term, Message: l.Message})
	}

	// Intake must stay fast even when the sink is slow.
	go func() {
		shipCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.sink.Ship(shipCtx, entries) //nolint:errcheck // best-effort delivery
	}()

	out := &LogsOutput{Status: http.StatusAccepted}
	out.Body.Accepted = len(entries)
	return out, nil
}

// RegisterLogsRoutes registers log intake endpoints with the Huma API.
func RegisterLogsRoutes(api huma.API, h *LogsHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "ingest-logs",
		Method:        http.MethodPost,
		Path:          "/api/v1/logs",
		Summary:       "Ingest client log batch",
		Description:   "Accepts a batch of client diagnostic lines and forwards them to the configured sink.",
		Tags:          []string{"logs"},
		DefaultStatus: http.StatusAccepted,
	}, h.Ingest)
}
