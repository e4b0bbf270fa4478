package eachlabs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusPayload is the execution state returned by GetStatus. Its structure
// belongs to the service; the client passes it through unmodified. Numbers
// are json.Number.
type StatusPayload map[string]any

// StatusKey is the field State reads.
const StatusKey = "status"

// terminalStates are the execution states after which the service no
// longer changes the payload.
var terminalStates = map[string]struct{}{
	"succeeded": {},
	"success":   {},
	"completed": {},
	"failed":    {},
	"error":     {},
	"cancelled": {},
	"canceled":  {},
}

// State returns the lower-cased "status" string, or "" when the payload has
// none.
func (p StatusPayload) State() string {
	s, _ := p[StatusKey].(string)
	return strings.ToLower(s)
}

// IsTerminal reports whether State is a final execution state.
func (p StatusPayload) IsTerminal() bool {
	_, ok := terminalStates[p.State()]
	return ok
}

// Succeeded reports whether the execution finished successfully.
func (p StatusPayload) Succeeded() bool {
	switch p.State() {
	case "succeeded", "success", "completed":
		return true
	}
	return false
}

// DecodeStatus converts p into a typed value using its JSON form.
//
//	type run struct {
//	    Status string         `json:"status"`
//	    Output map[string]any `json:"output"`
//	}
//	r, err := eachlabs.DecodeStatus[run](payload)
func DecodeStatus[T any](p StatusPayload) (T, error) {
	var out T
	b, err := json.Marshal(p)
	if err != nil {
		return out, fmt.Errorf("eachlabs: encode status payload: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("eachlabs: decode status payload into %T: %w", out, err)
	}
	return out, nil
}
