// Package assistant runs one chat turn end to end: context snapshot, prompt,
// model call, directive parsing, dispatch and conversation logging.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/lifeos/internal/action"
	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/metrics"
	"github.com/p-blackswan/lifeos/internal/models"
	"github.com/p-blackswan/lifeos/internal/requestid"
)

// Model is the model client used for a turn.
type Model interface {
	IsConfigured() bool
	ModelID() string
	Send(ctx context.Context, prompt string) (string, error)
}

// Store is everything a turn reads from or writes to.
type Store interface {
	SnapshotSource
	action.EntityStore
	AppendTurn(ctx context.Context, turn models.ConversationTurn) (*models.ConversationTurn, error)
}

// Reply is the outcome of one turn.
type Reply struct {
	Success  bool
	Response string
	Actions  []action.Directive
	Results  []action.Result
	Skipped  []action.SkippedDirective
	Error    string
}

// MarshalJSON renders the success or failure shape of the turn contract.
func (r Reply) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success  bool   `json:"success"`
			Error    string `json:"error"`
			Response string `json:"response"`
		}{false, r.Error, r.Response})
	}
	actions := r.Actions
	if actions == nil {
		actions = []action.Directive{}
	}
	results := r.Results
	if results == nil {
		results = []action.Result{}
	}
	return json.Marshal(struct {
		Success  bool                      `json:"success"`
		Response string                    `json:"response"`
		Actions  []action.Directive        `json:"actions"`
		Results  []action.Result           `json:"action_results"`
		Skipped  []action.SkippedDirective `json:"skipped,omitempty"`
	}{true, r.Response, actions, results, r.Skipped})
}

// Fallback replies shown to the user when a turn fails.
const (
	apologyNotConfigured = "I'm not connected to a language model yet. Set LLM_API_KEY and try again."
	apologyProvider      = "Sorry, I couldn't reach the language model just now. Nothing was changed; please try again."
	apologyInvalid       = "Please type a message for me to work with."
	apologyInternal      = "Sorry, something went wrong on my side. Nothing was changed; please try again."
)

// Option configures an Assistant.
type Option func(*Assistant)

// WithRecentTasks sets the snapshot task cap.
func WithRecentTasks(n int) Option {
	return func(a *Assistant) { a.recent = n }
}

// WithClock overrides the clock used for prompts and snapshots.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

// Assistant serialises chat turns and wires the pipeline components.
type Assistant struct {
	mu sync.Mutex

	model      Model
	store      Store
	contexts   *ContextBuilder
	composer   *Composer
	dispatcher *action.Dispatcher

	recent  int
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates an Assistant. It fails only if the embedded grammar is broken.
func New(model Model, store Store, opts ...Option) (*Assistant, error) {
	a := &Assistant{
		model:  model,
		store:  store,
		recent: DefaultRecentTasks,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With().Str("component", "assistant").Logger()

	g, err := LoadGrammar()
	if err != nil {
		return nil, err
	}
	a.contexts = NewContextBuilder(store, a.recent)
	a.contexts.now = a.now
	a.composer = NewComposer(g, WithComposerClock(a.now))
	a.dispatcher = action.NewDispatcher(store, a.logger)
	return a, nil
}

// Snapshot returns the context snapshot the next turn would see.
func (a *Assistant) Snapshot(ctx context.Context) (*Snapshot, error) {
	return a.contexts.Build(ctx)
}

// Configured reports whether the model client has a credential.
func (a *Assistant) Configured() bool {
	return a.model.IsConfigured()
}

// Handle runs one turn. The returned Reply is always usable as a response
// body; err is non-nil exactly when the turn failed as a whole.
func (a *Assistant) Handle(ctx context.Context, message string) (*Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	ctx, reqID := requestid.Ensure(ctx)
	logger := a.logger.With().Str("request_id", reqID).Logger()

	if strings.TrimSpace(message) == "" {
		return a.fail(logger, start, fmt.Errorf("message is required: %w", perrors.ErrInvalidInput))
	}
	if !a.model.IsConfigured() {
		return a.fail(logger, start, fmt.Errorf("model API key is not configured: %w", perrors.ErrNotConfigured))
	}

	snap, err := a.contexts.Build(ctx)
	if err != nil {
		return a.fail(logger, start, fmt.Errorf("building context: %w", err))
	}
	prompt, err := a.composer.Compose(snap, message)
	if err != nil {
		return a.fail(logger, start, fmt.Errorf("composing prompt: %w", err))
	}

	callStart := time.Now()
	raw, err := a.model.Send(ctx, prompt)
	if a.metrics != nil {
		result := "ok"
		if err != nil {
			result = perrors.Kind(err)
		}
		a.metrics.ObserveModelCall(a.model.ModelID(), result, time.Since(callStart).Seconds())
	}
	if err != nil {
		return a.fail(logger, start, err)
	}

	parsed := action.ParseDetailed(raw)
	for _, s := range parsed.Skipped {
		logger.Warn().Str("type", string(s.Type)).Int("offset", s.Offset).Str("reason", s.Reason).Msg("directive skipped")
		if a.metrics != nil {
			a.metrics.RecordSkipped(string(s.Type))
		}
	}

	results := a.dispatcher.Dispatch(ctx, parsed.Directives)
	failed := 0
	for _, r := range results {
		outcome := "success"
		if !r.Success {
			failed++
			outcome = perrors.Kind(r.Err)
		}
		if a.metrics != nil {
			a.metrics.RecordDirective(string(r.Type), outcome)
		}
	}

	a.appendTurn(ctx, logger, message, raw, snap)

	if a.metrics != nil {
		a.metrics.RecordTurn("success", time.Since(start).Seconds())
	}
	logger.Info().
		Int("directives", len(parsed.Directives)).
		Int("failed", failed).
		Int("skipped", len(parsed.Skipped)).
		Dur("elapsed", time.Since(start)).
		Msg("turn handled")

	return &Reply{
		Success:  true,
		Response: raw,
		Actions:  parsed.Directives,
		Results:  results,
		Skipped:  parsed.Skipped,
	}, nil
}

// appendTurn writes the conversation log. Directives are already applied, so
// a failure here is logged and counted only.
func (a *Assistant) appendTurn(ctx context.Context, logger zerolog.Logger, message, raw string, snap *Snapshot) {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		snapJSON = []byte("{}")
	}
	_, err = a.store.AppendTurn(ctx, models.ConversationTurn{
		Message:         message,
		RawResponse:     raw,
		ContextSnapshot: snapJSON,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to append conversation turn")
		if a.metrics != nil {
			a.metrics.RecordConversationError()
		}
	}
}

func (a *Assistant) fail(logger zerolog.Logger, start time.Time, err error) (*Reply, error) {
	kind := perrors.Kind(err)
	if a.metrics != nil {
		a.metrics.RecordTurn(kind, time.Since(start).Seconds())
	}
	logger.Warn().Err(err).Str("kind", kind).Msg("turn failed")
	return &Reply{Success: false, Error: err.Error(), Response: apologyFor(err)}, err
}

func apologyFor(err error) string {
	switch {
	case errors.Is(err, perrors.ErrNotConfigured):
		return apologyNotConfigured
	case errors.Is(err, perrors.ErrInvalidInput):
		return apologyInvalid
	case perrors.IsTurnFatal(err):
		return apologyProvider
	default:
		return apologyInternal
	}
}
