package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// sqlStore holds the queries shared by the SQLite and Postgres stores.
// Queries are written with '?' and rebound for dialects using $n.
type sqlStore struct {
	db     *sql.DB
	dollar bool
}

func (s *sqlStore) bind(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			trigger_id TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			batch_id TEXT NOT NULL DEFAULT '',
			webhook_url TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS runs_flow_created ON runs (flow_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS runs_batch ON runs (batch_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("journal: init schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) Save(ctx context.Context, run Run) error {
	if err := run.validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.bind(`
		INSERT INTO runs (trigger_id, id, flow_id, batch_id, webhook_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (trigger_id) DO UPDATE SET
			id = excluded.id,
			flow_id = excluded.flow_id,
			batch_id = excluded.batch_id,
			webhook_url = excluded.webhook_url,
			created_at = excluded.created_at`),
		run.TriggerID,
		run.ID.String(),
		run.FlowID,
		run.BatchID,
		run.WebhookURL,
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("journal: save %q: %w", run.TriggerID, err)
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, triggerID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`
		SELECT trigger_id, id, flow_id, batch_id, webhook_url, created_at
		FROM runs
		WHERE trigger_id = ?`),
		triggerID,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("journal: get %q: %w", triggerID, err)
	}
	return run, nil
}

func (s *sqlStore) List(ctx context.Context, filter Filter) ([]Run, error) {
	query := `
		SELECT trigger_id, id, flow_id, batch_id, webhook_url, created_at
		FROM runs`
	var args []any
	var clauses []string

	if filter.FlowID != "" {
		clauses = append(clauses, "flow_id = ?")
		args = append(args, filter.FlowID)
	}
	if filter.BatchID != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, filter.BatchID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, trigger_id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("journal: list: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return runs, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var id string
	var created int64
	if err := sc.Scan(&run.TriggerID, &id, &run.FlowID, &run.BatchID, &run.WebhookURL, &created); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("run %q: %w", run.TriggerID, err)
	}
	run.ID = parsed
	run.CreatedAt = fromUnixNano(created)
	return run, nil
}
