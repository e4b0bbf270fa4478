package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRunNotFound is returned when no run is recorded for a trigger id.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRun is returned by Save for runs without a trigger or flow id.
	ErrInvalidRun = errors.New("invalid run")
)

// Run is one started flow execution. Only identifiers are kept; execution
// results stay on the remote service.
type Run struct {
	ID        uuid.UUID
	TriggerID string
	FlowID    string
	// BatchID groups the runs of one bulk start. Empty for single starts.
	BatchID    string
	WebhookURL string
	CreatedAt  time.Time
}

// NewRun records a single start.
func NewRun(flowID, triggerID, webhookURL string) Run {
	return Run{
		ID:         uuid.New(),
		TriggerID:  triggerID,
		FlowID:     flowID,
		WebhookURL: webhookURL,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewBatch records the trigger ids of one bulk start under a shared batch id.
func NewBatch(flowID string, triggerIDs []string) []Run {
	batch := uuid.NewString()
	now := time.Now().UTC()
	runs := make([]Run, len(triggerIDs))
	for i, id := range triggerIDs {
		runs[i] = Run{
			ID:        uuid.New(),
			TriggerID: id,
			FlowID:    flowID,
			BatchID:   batch,
			CreatedAt: now,
		}
	}
	return runs
}

func (r Run) validate() error {
	if r.TriggerID == "" {
		return fmt.Errorf("%w: empty trigger id", ErrInvalidRun)
	}
	if r.FlowID == "" {
		return fmt.Errorf("%w: empty flow id", ErrInvalidRun)
	}
	return nil
}

// Filter selects runs. Empty fields do not filter; Limit <= 0 means no limit.
type Filter struct {
	FlowID  string
	BatchID string
	Limit   int
}

func (f Filter) matches(r Run) bool {
	if f.FlowID != "" && r.FlowID != f.FlowID {
		return false
	}
	if f.BatchID != "" && r.BatchID != f.BatchID {
		return false
	}
	return true
}

// Store records started runs. Saving a run for a trigger id that already
// exists replaces it. List returns newest first.
type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, triggerID string) (Run, error)
	List(ctx context.Context, filter Filter) ([]Run, error)
	Close() error
}

// SaveAll saves runs in order and stops at the first error.
func SaveAll(ctx context.Context, s Store, runs []Run) error {
	for _, r := range runs {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// sortRuns orders newest first, ties by trigger id, and applies limit.
func sortRuns(runs []Run, limit int) []Run {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].TriggerID < runs[j].TriggerID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
