package eachlabs

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is used when a PollPolicy has no Interval.
const DefaultPollInterval = 2 * time.Second

// PollPolicy controls WaitForStatus.
type PollPolicy struct {
	// Interval between status reads. The interval is fixed.
	Interval time.Duration

	// MaxAttempts caps the number of status reads; <= 0 means no cap, so
	// only ctx ends the wait.
	MaxAttempts int

	// Done decides whether a payload ends the wait. Nil uses
	// StatusPayload.IsTerminal.
	Done func(StatusPayload) bool
}

// PollBuilder provides a fluent way to construct PollPolicy values.
type PollBuilder struct {
	policy PollPolicy
}

// Poll creates a PollBuilder with the given maxAttempts and the default
// interval.
func Poll(maxAttempts int) PollBuilder {
	return PollBuilder{
		policy: PollPolicy{
			Interval:    DefaultPollInterval,
			MaxAttempts: maxAttempts,
		},
	}
}

// Every sets the interval between reads.
func (b PollBuilder) Every(d time.Duration) PollBuilder {
	p := b.policy
	p.Interval = d
	return PollBuilder{policy: p}
}

// Until sets the predicate that ends the wait.
func (b PollBuilder) Until(done func(StatusPayload) bool) PollBuilder {
	p := b.policy
	p.Done = done
	return PollBuilder{policy: p}
}

// Policy returns the underlying PollPolicy.
func (b PollBuilder) Policy() PollPolicy {
	return b.policy
}

// WaitForStatus reads the status of triggerID until policy.Done accepts it.
//
// The first read happens immediately. A failed read ends the wait with its
// error; requests are never repeated to recover from a failure. When
// MaxAttempts reads pass without a final state the last payload is returned
// together with ErrPollExhausted.
func (c *Client) WaitForStatus(ctx context.Context, apiKey, flowID, triggerID string, policy PollPolicy) (StatusPayload, error) {
	interval := policy.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	done := policy.Done
	if done == nil {
		done = StatusPayload.IsTerminal
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	var last StatusPayload
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}

		payload, err := c.GetStatus(ctx, apiKey, flowID, triggerID)
		if err != nil {
			return last, err
		}
		last = payload

		if done(payload) {
			return payload, nil
		}
		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return last, fmt.Errorf("%w after %d reads (state %q)", ErrPollExhausted, attempt, payload.State())
		}

		timer.Reset(interval)
	}
}
