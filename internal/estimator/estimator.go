// Package estimator orchestrates multi-source price estimation: token-backed
// adapter dispatch, cascade to secondary sources, robust statistics, and
// response assembly.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scanworth/scanworth/internal/auth"
	"github.com/scanworth/scanworth/internal/metrics"
	"github.com/scanworth/scanworth/internal/sink"
	"github.com/scanworth/scanworth/internal/source"
	"github.com/scanworth/scanworth/pkg/stats"
	domain "github.com/scanworth/scanworth/pkg/types"
)

const (
	defaultCallTimeout = 12 * time.Second

	branchCurrent = "current"
	branchSold    = "sold"
)

// ErrNoSources is returned when no adapter is configured on either branch.
// This is the only condition that fails a whole request; every per-branch
// failure degrades to an empty branch with a note.
var ErrNoSources = errors.New("no marketplace source configured")

// ErrEmptyTerm is returned for a blank search term.
var ErrEmptyTerm = errors.New("search term is empty")

// Provider is the estimate capability. The cache decorator wraps it.
type Provider interface {
	Estimate(ctx context.Context, term string) (*domain.EstimateResult, error)
}

// Estimator runs the fallback orchestration over the configured adapters.
// Each branch holds an ordered adapter list: the first is the primary, the
// rest cascade in order when the previous one errored or came back empty.
// Stateless across requests; the only shared state lives in the token
// manager the adapters hold.
type Estimator struct {
	current []source.Adapter
	sold    []source.Adapter

	sink        sink.Sink
	log         *slog.Logger
	callTimeout time.Duration
}

// Option configures the Estimator.
type Option func(*Estimator)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		e.log = l
	}
}

// WithCallTimeout bounds each adapter call so one slow provider cannot stall
// the whole request.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Estimator) {
		e.callTimeout = d
	}
}

// WithSink sets the diagnostic note sink. Notes are shipped after assembly,
// fire-and-forget.
func WithSink(s sink.Sink) Option {
	return func(e *Estimator) {
		e.sink = s
	}
}

// New creates an Estimator over the current-listing and sold-comp adapter
// lists.
func New(current, sold []source.Adapter, opts ...Option) *Estimator {
	e := &Estimator{
		current:     current,
		sold:        sold,
		sink:        sink.NewNoopSink(),
		log:         slog.Default(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate runs the full pipeline for one search term: concurrent primary
// dispatch on both branches, per-branch cascade, three statistics summaries,
// and note assembly. Branch failures never abort the request.
func (e *Estimator) Estimate(ctx context.Context, term string) (*domain.EstimateResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyTerm
	}
	if len(e.current) == 0 && len(e.sold) == 0 {
		return nil, ErrNoSources
	}

	start := time.Now()
	defer func() {
		metrics.EstimatesTotal.Inc()
		metrics.EstimateDuration.Observe(time.Since(start).Seconds())
	}()

	e.log.Info("estimate started",
		"term", term,
		"kind", string(domain.ClassifyTerm(term)),
	)

	var (
		currentItems, soldItems []domain.Item
		currentNotes, soldNotes []string
	)

	// Join-style: both branches run to completion before assembly. The sold
	// branch never gates the current branch's cascade (and vice versa)
	// because each branch cascades inside its own goroutine.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		currentItems, currentNotes = e.runBranch(gctx, branchCurrent, e.current, term)
		return nil
	})
	g.Go(func() error {
		soldItems, soldNotes = e.runBranch(gctx, branchSold, e.sold, term)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // branch runners never return errors

	notes := make([]string, 0, len(currentNotes)+len(soldNotes))
	notes = append(notes, currentNotes...)
	notes = append(notes, soldNotes...)

	combined := make([]domain.Item, 0, len(currentItems)+len(soldItems))
	combined = append(combined, currentItems...)
	combined = append(combined, soldItems...)

	res := &domain.EstimateResult{
		ItemsCurrent: currentItems,
		ItemsSold:    soldItems,
		Stats: domain.EstimateStats{
			Current:  stats.Summarize(domain.Prices(currentItems)),
			Sold:     stats.Summarize(domain.Prices(soldItems)),
			Combined: stats.Summarize(domain.Prices(combined)),
		},
		Note: domain.JoinNotes(notes),
	}

	e.log.Info("estimate finished",
		"term", term,
		"current_items", len(currentItems),
		"sold_items", len(soldItems),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	e.shipNotes(term, notes)

	return res, nil
}

// runBranch tries the branch's adapters in order until one yields items.
// Every outcome (success, empty, error) becomes a note; errors never
// propagate past the branch.
func (e *Estimator) runBranch(
	ctx context.Context,
	branch string,
	adapters []source.Adapter,
	term string,
) ([]domain.Item, []string) {
	if len(adapters) == 0 {
		return []domain.Item{}, []string{fmt.Sprintf("[%s] no source configured", branch)}
	}

	var notes []string

	for i, ad := range adapters {
		if i > 0 {
			notes = append(notes, fmt.Sprintf("[%s] cascading to %s", branch, ad.ID()))
			metrics.CascadesTotal.WithLabelValues(branch).Inc()
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		res, err := ad.Search(callCtx, term)
		cancel()

		if err != nil {
			notes = append(notes, e.noteForError(branch, ad.ID(), err))
			continue
		}

		if len(res.Items) == 0 {
			notes = append(notes, fmt.Sprintf("[%s] %s: empty result", branch, ad.ID()))
			continue
		}

		notes = append(notes, fmt.Sprintf("[%s] %s", branch, res.Note))
		return res.Items, notes
	}

	return []domain.Item{}, notes
}

// noteForError converts an adapter failure into a diagnostic note, keeping
// throttling, auth trouble, and timeouts distinguishable for operators.
func (e *Estimator) noteForError(branch, id string, err error) string {
	if errors.Is(err, auth.ErrNoCredentials) {
		e.log.Warn("source credentials missing", "branch", branch, "source", id)
		return fmt.Sprintf("[%s] %s: credentials not configured", branch, id)
	}

	var exchErr *auth.ExchangeError
	if errors.As(err, &exchErr) {
		e.log.Warn("token exchange rejected", "branch", branch, "source", id, "status", exchErr.Status)
		return fmt.Sprintf("[%s] %s: token exchange rejected (status %d)", branch, id, exchErr.Status)
	}

	var rlErr *source.RateLimitError
	if errors.As(err, &rlErr) {
		e.log.Warn("source rate limited", "branch", branch, "source", id, "code", rlErr.Code)
		return fmt.Sprintf("[%s] %s: rate limited (code %s)", branch, id, rlErr.Code)
	}

	var httpErr *source.HTTPError
	if errors.As(err, &httpErr) {
		e.log.Warn("source call failed", "branch", branch, "source", id, "status", httpErr.Status)
		return fmt.Sprintf("[%s] %s: provider returned status %d", branch, id, httpErr.Status)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		e.log.Warn("source call timed out", "branch", branch, "source", id, "timeout", e.callTimeout)
		return fmt.Sprintf("[%s] %s: timed out after %s", branch, id, e.callTimeout)
	}

	e.log.Warn("source call failed", "branch", branch, "source", id, "error", err)
	return fmt.Sprintf("[%s] %s: failed: %v", branch, id, err)
}

// shipNotes forwards the diagnostic trail to the configured sink without
// blocking the response path.
func (e *Estimator) shipNotes(term string, notes []string) {
	if len(notes) == 0 {
		return
	}

	now := time.Now()
	entries := make([]sink.Entry, 0, len(notes))
	for _, n := range notes {
		entries = append(entries, sink.Entry{Time: now, Term: term, Message: n})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.sink.Ship(ctx, entries); err != nil {
			e.log.Debug("note sink delivery failed", "error", err)
		}
	}()
}
