package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/neonkit/neon/internal/journal"
	"github.com/neonkit/neon/pkg/eachlabs"
)

type paramFlags struct {
	pairs []string
	file  string
}

func (p *paramFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&p.pairs, "param", "p", nil, "flow parameter as key=value (repeatable; JSON values are decoded)")
	cmd.Flags().StringVar(&p.file, "params-file", "", "JSON object file with flow parameters")
}

func (p *paramFlags) parse() (eachlabs.Parameters, error) {
	return parseParams(p.file, p.pairs)
}

type startedView struct {
	FlowID    string `json:"flow_id"`
	TriggerID string `json:"trigger_id"`
}

type bulkView struct {
	FlowID       string   `json:"flow_id"`
	BatchID      string   `json:"batch_id"`
	ExecutionIDs []string `json:"execution_ids"`
}

type runView struct {
	ID         string    `json:"id"`
	TriggerID  string    `json:"trigger_id"`
	FlowID     string    `json:"flow_id"`
	BatchID    string    `json:"batch_id,omitempty"`
	WebhookURL string    `json:"webhook_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a *app) triggerCommand() *cobra.Command {
	var params paramFlags
	var webhook string

	cmd := &cobra.Command{
		Use:   "trigger <flow-id>",
		Short: "Start one execution of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := params.parse()
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}

			task := eachlabs.Flow(args[0]).Params(p).Webhook(webhook)
			triggerID, err := task.Start(ctx, c, a.cfg.APIKey)
			if err != nil {
				return err
			}

			a.record(ctx, journal.NewRun(task.FlowID(), triggerID, webhook))
			return a.printJSON(startedView{FlowID: task.FlowID(), TriggerID: triggerID})
		},
	}
	params.register(cmd)
	cmd.Flags().StringVar(&webhook, "webhook", "", "URL notified when the execution finishes")
	return cmd
}

func (a *app) bulkCommand() *cobra.Command {
	var params paramFlags
	var count int

	cmd := &cobra.Command{
		Use:   "bulk <flow-id>",
		Short: "Start several executions of a flow with the same parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := params.parse()
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}

			task := eachlabs.Flow(args[0]).Params(p)
			ids, err := task.StartBulk(ctx, c, a.cfg.APIKey, count)
			if err != nil {
				return err
			}

			runs := journal.NewBatch(task.FlowID(), ids)
			a.record(ctx, runs...)

			view := bulkView{FlowID: task.FlowID(), ExecutionIDs: ids}
			if len(runs) > 0 {
				view.BatchID = runs[0].BatchID
			}
			return a.printJSON(view)
		},
	}
	params.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of executions; 0 leaves the count to the service")
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	var flowID string

	cmd := &cobra.Command{
		Use:   "status <trigger-id>",
		Short: "Print the current status of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client()
			if err != nil {
				return err
			}
			flow, err := a.resolveFlow(ctx, flowID, args[0])
			if err != nil {
				return err
			}

			status, err := c.GetStatus(ctx, a.cfg.APIKey, flow, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(status)
		},
	}
	cmd.Flags().StringVar(&flowID, "flow", "", "flow id (looked up in the journal when empty)")
	return cmd
}

func (a *app) waitCommand() *cobra.Command {
	var (
		flowID      string
		interval    time.Duration
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "wait <trigger-id>",
		Short: "Poll an execution until it reaches a final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client()
			if err != nil {
				return err
			}
			flow, err := a.resolveFlow(ctx, flowID, args[0])
			if err != nil {
				return err
			}

			policy := eachlabs.Poll(maxAttempts).Every(interval).Policy()
			status, err := c.WaitForStatus(ctx, a.cfg.APIKey, flow, args[0], policy)
			if errors.Is(err, eachlabs.ErrPollExhausted) && status != nil {
				if perr := a.printJSON(status); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			return a.printJSON(status)
		},
	}
	cmd.Flags().StringVar(&flowID, "flow", "", "flow id (looked up in the journal when empty)")
	cmd.Flags().DurationVar(&interval, "interval", eachlabs.DefaultPollInterval, "time between status reads")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "give up after this many reads (0 waits until the context ends)")
	return cmd
}

func (a *app) runsCommand() *cobra.Command {
	var filter journal.Filter

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List executions started from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.journal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(ctx, filter)
			if err != nil {
				return err
			}
			views := make([]runView, len(runs))
			for i, r := range runs {
				views[i] = runView{
					ID:         r.ID.String(),
					TriggerID:  r.TriggerID,
					FlowID:     r.FlowID,
					BatchID:    r.BatchID,
					WebhookURL: r.WebhookURL,
					CreatedAt:  r.CreatedAt,
				}
			}
			return a.printJSON(views)
		},
	}
	cmd.Flags().StringVar(&filter.FlowID, "flow", "", "only runs of this flow")
	cmd.Flags().StringVar(&filter.BatchID, "batch", "", "only runs of this bulk batch")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of runs (0 for all)")
	return cmd
}
