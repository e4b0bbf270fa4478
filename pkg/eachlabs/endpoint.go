package eachlabs

import "net/http"

// DefaultBaseURL is the EachLabs flows API root. Paths are appended to it
// verbatim, so it must end with a slash.
const DefaultBaseURL = "https://flows.eachlabs.ai/api/v1/"

const (
	// HeaderAPIKey carries the caller's credentials on every request.
	HeaderAPIKey = "X-API-Key"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Parameters are the flow inputs. Values must be JSON-serializable.
type Parameters map[string]any

// Endpoint is one of StartTask, StartBulkTask or GetStatus.
//
// The set is closed; the unexported method keeps other packages from adding
// variants so every switch over an Endpoint stays exhaustive.
type Endpoint interface {
	// Method is the HTTP verb.
	Method() string
	// Path is the resource path relative to the base URL.
	Path() string
	// Headers returns a fresh header set carrying the API key.
	Headers() http.Header

	endpoint()
}

// StartTask triggers one execution of a flow.
type StartTask struct {
	// FlowID becomes a path segment as is; '/', '?' and '#' are rejected.
	FlowID     string
	Parameters Parameters
	// WebhookURL is sent as "webhook_url" when non-empty.
	WebhookURL string
	APIKey     string
}

// StartBulkTask triggers Count executions of a flow with the same inputs.
type StartBulkTask struct {
	FlowID     string
	Parameters Parameters
	// Count is sent as given; 0 leaves the repetition count to the service.
	Count  int
	APIKey string
}

// GetStatus reads the state of one execution.
type GetStatus struct {
	FlowID    string
	TriggerID string
	APIKey    string
}

func (StartTask) endpoint()     {}
func (StartBulkTask) endpoint() {}
func (GetStatus) endpoint()     {}

func (StartTask) Method() string     { return http.MethodPost }
func (StartBulkTask) Method() string { return http.MethodPost }
func (GetStatus) Method() string     { return http.MethodGet }

func (e StartTask) Path() string {
	return e.FlowID + "/trigger"
}

func (e StartBulkTask) Path() string {
	return e.FlowID + "/bulk"
}

func (e GetStatus) Path() string {
	return e.FlowID + "/executions/" + e.TriggerID
}

func (e StartTask) Headers() http.Header     { return headers(e.APIKey) }
func (e StartBulkTask) Headers() http.Header { return headers(e.APIKey) }
func (e GetStatus) Headers() http.Header     { return headers(e.APIKey) }

func headers(apiKey string) http.Header {
	h := make(http.Header, 2)
	h.Set(HeaderAPIKey, apiKey)
	h.Set(headerContentType, contentTypeJSON)
	return h
}

// startEnvelope and bulkEnvelope are the JSON bodies of the POST variants.
type startEnvelope struct {
	Parameters Parameters `json:"parameters"`
	WebhookURL string     `json:"webhook_url,omitempty"`
}

type bulkEnvelope struct {
	Parameters Parameters `json:"parameters"`
	Count      int        `json:"count"`
}

// envelope returns the value to serialize as the request body, or nil for
// variants that carry none.
func envelope(ep Endpoint) any {
	switch e := ep.(type) {
	case StartTask:
		return startEnvelope{Parameters: nonNil(e.Parameters), WebhookURL: e.WebhookURL}
	case StartBulkTask:
		return bulkEnvelope{Parameters: nonNil(e.Parameters), Count: e.Count}
	case GetStatus:
		return nil
	default:
		panic("eachlabs: unknown endpoint type")
	}
}

// nonNil keeps a nil map from being encoded as JSON null.
func nonNil(p Parameters) Parameters {
	if p == nil {
		return Parameters{}
	}
	return p
}

// pathIDs returns the ids that become path segments.
func pathIDs(ep Endpoint) []string {
	switch e := ep.(type) {
	case StartTask:
		return []string{e.FlowID}
	case StartBulkTask:
		return []string{e.FlowID}
	case GetStatus:
		return []string{e.FlowID, e.TriggerID}
	default:
		return nil
	}
}

// opName is the operation label used in errors and observer events.
func opName(ep Endpoint) string {
	switch ep.(type) {
	case StartTask:
		return "start_task"
	case StartBulkTask:
		return "start_bulk_task"
	case GetStatus:
		return "get_status"
	default:
		return "unknown"
	}
}
