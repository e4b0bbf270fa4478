package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)

func sampleRun(flowID, triggerID string, at time.Time) Run {
	return Run{
		ID:        uuid.New(),
		TriggerID: triggerID,
		FlowID:    flowID,
		CreatedAt: at,
	}
}

func requireRun(t *testing.T, want, got Run) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.TriggerID, got.TriggerID)
	require.Equal(t, want.FlowID, got.FlowID)
	require.Equal(t, want.BatchID, got.BatchID)
	require.Equal(t, want.WebhookURL, got.WebhookURL)
	require.Truef(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %s, got %s", want.CreatedAt, got.CreatedAt)
}

func triggerIDs(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.TriggerID
	}
	return out
}

// runStoreContract checks the behaviour every Store shares. fresh must
// return an empty store for each call.
func runStoreContract(t *testing.T, fresh func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("SaveGet", func(t *testing.T) {
		s := fresh(t)
		run := sampleRun("flow-a", "trig-1", t0)
		run.WebhookURL = "https://hooks.test/done"
		require.NoError(t, s.Save(ctx, run))

		got, err := s.Get(ctx, "trig-1")
		require.NoError(t, err)
		requireRun(t, run, got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := fresh(t)
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := fresh(t)
		run := sampleRun("flow-a", "trig-1", t0)
		require.NoError(t, s.Save(ctx, run))

		run.WebhookURL = "https://hooks.test/v2"
		require.NoError(t, s.Save(ctx, run))

		got, err := s.Get(ctx, "trig-1")
		require.NoError(t, err)
		require.Equal(t, "https://hooks.test/v2", got.WebhookURL)

		all, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		s := fresh(t)
		require.ErrorIs(t, s.Save(ctx, sampleRun("flow-a", "", t0)), ErrInvalidRun)
		require.ErrorIs(t, s.Save(ctx, sampleRun("", "trig-1", t0)), ErrInvalidRun)
	})

	t.Run("ListFiltersAndOrders", func(t *testing.T) {
		s := fresh(t)
		runs := []Run{
			sampleRun("flow-a", "a-1", t0),
			sampleRun("flow-a", "a-2", t0.Add(time.Second)),
			sampleRun("flow-b", "b-1", t0.Add(2*time.Second)),
		}
		for _, id := range []string{"bulk-2", "bulk-1"} {
			r := sampleRun("flow-a", id, t0.Add(3*time.Second))
			r.BatchID = "batch-1"
			runs = append(runs, r)
		}
		require.NoError(t, SaveAll(ctx, s, runs))

		all, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		require.Equal(t, []string{"bulk-1", "bulk-2", "b-1", "a-2", "a-1"}, triggerIDs(all))

		flowB, err := s.List(ctx, Filter{FlowID: "flow-b"})
		require.NoError(t, err)
		require.Equal(t, []string{"b-1"}, triggerIDs(flowB))

		batch, err := s.List(ctx, Filter{BatchID: "batch-1"})
		require.NoError(t, err)
		require.Equal(t, []string{"bulk-1", "bulk-2"}, triggerIDs(batch))

		limited, err := s.List(ctx, Filter{FlowID: "flow-a", Limit: 3})
		require.NoError(t, err)
		require.Equal(t, []string{"bulk-1", "bulk-2", "a-2"}, triggerIDs(limited))

		none, err := s.List(ctx, Filter{FlowID: "flow-b", BatchID: "batch-1"})
		require.NoError(t, err)
		require.Empty(t, none)
	})
}
