package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/neonkit/neon/internal/config"
	"github.com/neonkit/neon/internal/journal"
	"github.com/neonkit/neon/pkg/eachlabs"
)

type app struct {
	stdout  io.Writer
	stderr  io.Writer
	envFile string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "eachlabs",
		Short:         "Start and inspect EachLabs flow executions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		a.triggerCommand(),
		a.bulkCommand(),
		a.statusCommand(),
		a.waitCommand(),
		a.runsCommand(),
	)
	return root
}

func (a *app) load() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return nil
}

func (a *app) client() (*eachlabs.Client, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return eachlabs.New(
		eachlabs.WithBaseURL(a.cfg.BaseURL),
		eachlabs.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}),
		eachlabs.WithLogger(a.logger),
	)
}

func (a *app) journal(ctx context.Context) (journal.Store, error) {
	return journal.Open(ctx, a.cfg.Journal)
}

// record saves runs after a successful start. The execution already
// exists remotely, so a journal failure is logged and not returned.
func (a *app) record(ctx context.Context, runs ...journal.Run) {
	store, err := a.journal(ctx)
	if err != nil {
		a.logger.Warn("journal_unavailable", "journal", a.cfg.Journal, "error", err)
		return
	}
	defer store.Close()
	if err := journal.SaveAll(ctx, store, runs); err != nil {
		a.logger.Warn("journal_save_failed", "error", err)
	}
}

// resolveFlow returns flowID, or the flow recorded for triggerID.
func (a *app) resolveFlow(ctx context.Context, flowID, triggerID string) (string, error) {
	if flowID != "" {
		return flowID, nil
	}
	store, err := a.journal(ctx)
	if err != nil {
		return "", err
	}
	defer store.Close()

	run, err := store.Get(ctx, triggerID)
	if err != nil {
		return "", fmt.Errorf("trigger %q: %w (pass --flow)", triggerID, err)
	}
	return run.FlowID, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseParams merges the JSON object in file (if any) with key=value
// pairs. Values that are valid JSON are decoded, everything else is kept
// as a string.
func parseParams(file string, pairs []string) (eachlabs.Parameters, error) {
	params := eachlabs.Parameters{}

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
			return nil, fmt.Errorf("params file %s: not a JSON object", file)
		}
		if err := decodeJSON(raw, &params); err != nil {
			return nil, fmt.Errorf("params file %s: %w", file, err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("param %q: want key=value", pair)
		}
		if gjson.Valid(value) {
			var v any
			if err := decodeJSON([]byte(value), &v); err != nil {
				return nil, fmt.Errorf("param %q: %w", pair, err)
			}
			params[key] = v
			continue
		}
		params[key] = value
	}
	return params, nil
}

// decodeJSON keeps numbers as json.Number so they are sent digit for digit.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
