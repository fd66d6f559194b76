// Package sink ships diagnostic notes to an external log sink. Delivery is
// fire-and-forget: the estimator never waits on it for correctness.
package sink

import (
	"context"
	"time"
)

// Entry is a single diagnostic note.
type Entry struct {
	Time    time.Time `json:"time"`
	Term    string    `json:"term,omitempty"`
	Message string    `json:"message"`
}

// Sink receives batches of diagnostic entries.
type Sink interface {
	Ship(ctx context.Context, entries []Entry) error
}
