package eachlabs

import (
	"context"
	"log/slog"
	"sync"
)

// Client triggers EachLabs flows and reads their execution status.
//
// A Client holds only immutable configuration; every call builds its own
// request and is safe to run concurrently with others. Results of
// concurrent calls arrive in no particular order.
type Client struct {
	baseURL   string
	transport *Transport

	// inflight tracks goroutines started by the Async methods.
	inflight sync.WaitGroup
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	baseURL     string
	doer        Doer
	observers   []Observer
	passthrough bool
}

// WithBaseURL overrides DefaultBaseURL. The value is validated by New.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(d Doer) Option {
	return func(s *settings) { s.doer = d }
}

// WithObserver adds an Observer. It may be given more than once.
func WithObserver(obs Observer) Option {
	return func(s *settings) { s.observers = append(s.observers, obs) }
}

// WithLogger logs request lifecycle events to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithObserver(NewLoggingObserver(logger))
}

// WithStatusPassthrough accepts any HTTP status as long as the body is a
// JSON object. By default non-2xx responses fail with KindStatus.
func WithStatusPassthrough() Option {
	return func(s *settings) { s.passthrough = true }
}

// New returns a Client. It fails with KindInvalidURL when the base URL is
// not absolute.
func New(opts ...Option) (*Client, error) {
	s := settings{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&s)
	}

	if err := validateBaseURL(s.baseURL); err != nil {
		return nil, withOp("new_client", err)
	}

	t := NewTransport(s.doer, NewCompositeObserver(s.observers...))
	t.passthrough = s.passthrough

	return &Client{
		baseURL:   s.baseURL,
		transport: t,
	}, nil
}

// BaseURL returns the API root requests are built against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StartTask triggers flowID with params and returns the trigger id. An empty
// webhookURL is omitted from the request.
func (c *Client) StartTask(ctx context.Context, apiKey, flowID string, params Parameters, webhookURL string) (string, error) {
	ep := StartTask{FlowID: flowID, Parameters: params, WebhookURL: webhookURL, APIKey: apiKey}

	obj, err := c.do(ctx, ep)
	if err != nil {
		return "", err
	}

	id, ok := TriggerID(obj)
	if !ok {
		return "", &Error{Op: opName(ep), Kind: KindMissingField, Field: fieldTriggerID}
	}
	return id, nil
}

// StartBulkTask triggers count executions of flowID and returns their ids
// in response order. A count of 0 leaves the number to the service.
func (c *Client) StartBulkTask(ctx context.Context, apiKey, flowID string, params Parameters, count int) ([]string, error) {
	ep := StartBulkTask{FlowID: flowID, Parameters: params, Count: count, APIKey: apiKey}

	obj, err := c.do(ctx, ep)
	if err != nil {
		return nil, err
	}

	ids, ok := ExecutionIDs(obj)
	if !ok {
		return nil, &Error{Op: opName(ep), Kind: KindMissingField, Field: fieldExecutionIDs}
	}
	return ids, nil
}

// GetStatus returns the execution state of triggerID exactly as the service
// reported it.
func (c *Client) GetStatus(ctx context.Context, apiKey, flowID, triggerID string) (StatusPayload, error) {
	obj, err := c.do(ctx, GetStatus{FlowID: flowID, TriggerID: triggerID, APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return StatusPayload(obj.Map()), nil
}

// StartTaskAsync runs StartTask on a new goroutine and calls done exactly
// once with its result.
func (c *Client) StartTaskAsync(ctx context.Context, apiKey, flowID string, params Parameters, webhookURL string, done func(string, error)) {
	c.goAsync(func() {
		done(c.StartTask(ctx, apiKey, flowID, params, webhookURL))
	})
}

// StartBulkTaskAsync runs StartBulkTask on a new goroutine and calls done
// exactly once with its result.
func (c *Client) StartBulkTaskAsync(ctx context.Context, apiKey, flowID string, params Parameters, count int, done func([]string, error)) {
	c.goAsync(func() {
		done(c.StartBulkTask(ctx, apiKey, flowID, params, count))
	})
}

// GetStatusAsync runs GetStatus on a new goroutine and calls done exactly
// once with its result.
func (c *Client) GetStatusAsync(ctx context.Context, apiKey, flowID, triggerID string, done func(StatusPayload, error)) {
	c.goAsync(func() {
		done(c.GetStatus(ctx, apiKey, flowID, triggerID))
	})
}

// Wait blocks until every goroutine started by an Async method has called
// its completion.
func (c *Client) Wait() {
	c.inflight.Wait()
}

func (c *Client) goAsync(fn func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn()
	}()
}

func (c *Client) do(ctx context.Context, ep Endpoint) (Object, error) {
	req, err := Build(c.baseURL, ep)
	if err != nil {
		return Object{}, err
	}
	return c.transport.Execute(ctx, req)
}
