package neon

import (
	"context"

	"github.com/neonkit/neon/internal/journal"
	"github.com/neonkit/neon/pkg/eachlabs"
	"github.com/neonkit/neon/pkg/paywall"
)

// Re-export key types so users don't need to dig into pkg/.

type (
	Client        = eachlabs.Client
	Option        = eachlabs.Option
	Parameters    = eachlabs.Parameters
	StatusPayload = eachlabs.StatusPayload
	PollPolicy    = eachlabs.PollPolicy
	TaskBuilder   = eachlabs.TaskBuilder
	Error         = eachlabs.Error
	Kind          = eachlabs.Kind

	Observer             = eachlabs.Observer
	RequestInfo          = eachlabs.RequestInfo
	LoggingObserver      = eachlabs.LoggingObserver
	BasicMetrics         = eachlabs.BasicMetrics
	BasicMetricsSnapshot = eachlabs.BasicMetricsSnapshot
	CompositeObserver    = eachlabs.CompositeObserver
	NoopObserver         = eachlabs.NoopObserver

	Presenter       = paywall.Presenter
	PresentRequest  = paywall.PresentRequest
	PaywallCache    = paywall.Cache
	Entitlement     = paywall.Entitlement
	PaywallEvent    = paywall.Event
	PaywallHandlers = paywall.Handlers

	Run        = journal.Run
	RunFilter  = journal.Filter
	RunJournal = journal.Store
)

// Re-export constructors and options.

var (
	New                   = eachlabs.New
	WithBaseURL           = eachlabs.WithBaseURL
	WithHTTPClient        = eachlabs.WithHTTPClient
	WithObserver          = eachlabs.WithObserver
	WithLogger            = eachlabs.WithLogger
	WithStatusPassthrough = eachlabs.WithStatusPassthrough

	Flow = eachlabs.Flow
	Poll = eachlabs.Poll

	NewLoggingObserver   = eachlabs.NewLoggingObserver
	NewCompositeObserver = eachlabs.NewCompositeObserver

	NewPresenter    = paywall.NewPresenter
	NewPaywallCache = paywall.NewCache
)

// Re-export sentinel errors.

var (
	ErrNoResult      = eachlabs.ErrNoResult
	ErrInvalidURL    = eachlabs.ErrInvalidURL
	ErrPollExhausted = eachlabs.ErrPollExhausted
	ErrRunNotFound   = journal.ErrRunNotFound
)

const DefaultBaseURL = eachlabs.DefaultBaseURL

// OpenJournal opens a run journal by DSN (memory:, sqlite:<path>,
// postgres://, redis://, mongodb://). It wraps the internal journal package
// so external callers never need to import it.
func OpenJournal(ctx context.Context, dsn string) (RunJournal, error) {
	return journal.Open(ctx, dsn)
}

// NewRun records a single start for a journal.
func NewRun(flowID, triggerID, webhookURL string) Run {
	return journal.NewRun(flowID, triggerID, webhookURL)
}

// StartAndRecord starts one execution of flowID and saves it to j.
// A journal failure is returned together with the trigger id.
func StartAndRecord(ctx context.Context, c *Client, j RunJournal, apiKey, flowID string, params Parameters, webhookURL string) (string, error) {
	triggerID, err := c.StartTask(ctx, apiKey, flowID, params, webhookURL)
	if err != nil {
		return "", err
	}
	return triggerID, j.Save(ctx, journal.NewRun(flowID, triggerID, webhookURL))
}
