// Package neon is a Go client for EachLabs flows plus a presenter for
// vendor builder paywalls.
//
// # Flows
//
// The Client starts flow executions and reads their status over the
// EachLabs REST API:
//
//   - StartTask posts {"parameters": …, "webhook_url"?: …} to {flow}/trigger
//     and returns the trigger id.
//   - StartBulkTask posts {"parameters": …, "count": n} to {flow}/bulk and
//     returns the execution ids.
//   - GetStatus reads {flow}/executions/{trigger} and returns the payload as
//     is.
//
// Every call takes the API key, sent as X-API-Key. A missing result is
// reported as an error matching ErrNoResult; the error's Kind says why.
// WaitForStatus polls GetStatus at a fixed interval until a final state.
//
// # Paywalls
//
// Presenter shows paywalls prefetched into a cache and delivers purchases,
// restores and dismissals as events. The caller owns the Entitlement: it
// goes in with each PresentRequest and comes back in each event.
//
// # Journal
//
// OpenJournal records started runs locally so a trigger id can be mapped
// back to its flow. Backends: memory, SQLite, Postgres, Redis and MongoDB.
package neon
