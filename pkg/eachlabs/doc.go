// Package eachlabs is a client for the EachLabs flows API. It triggers named
// flows with parameters and reads the status of their executions.
//
// The client is deliberately small. Each public operation performs exactly
// one HTTP call, and there is no retry, queuing, token refresh or caching.
//
// # Endpoints
//
// The API surface is a closed set of three request shapes:
//
//   - StartTask:     POST {flowId}/trigger
//   - StartBulkTask: POST {flowId}/bulk
//   - GetStatus:     GET  {flowId}/executions/{triggerId}
//
// Each is a value type implementing Endpoint. Build turns an Endpoint into a
// Request; building the same Endpoint twice yields identical requests.
//
// # Results and errors
//
// Operations return a value and a nil error on success. Every recoverable
// failure (transport error, non-2xx status, unreadable or non-object body,
// missing field) is an *Error matching ErrNoResult, so callers that only
// need "did it work" can write:
//
//	id, err := client.StartTask(ctx, apiKey, flowID, params, "")
//	if errors.Is(err, eachlabs.ErrNoResult) {
//	    // no trigger id
//	}
//
// The Kind of the error tells the reasons apart. An invalid base URL is
// reported by New as ErrInvalidURL and is not an absence.
//
// # Asynchronous use
//
// The ...Async methods run the operation on a new goroutine and call the
// completion exactly once. Client.Wait blocks until all of them returned.
//
// # Observability
//
// Observers receive a start and a completion callback per request.
// LoggingObserver writes them to log/slog, BasicMetrics counts them and
// NewCompositeObserver combines several. The API key is never passed to
// observers.
package eachlabs
