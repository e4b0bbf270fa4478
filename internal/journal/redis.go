package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces journal keys.
const DefaultRedisPrefix = "eachlabs:"

// RedisStore is a Store backed by Redis. Key layout:
//
//	<prefix>run:<trigger>          => JSON redisRunPayload
//	<prefix>idx:all                => SET of all trigger ids
//	<prefix>idx:flow:<flow>        => SET of trigger ids for a flow
//	<prefix>idx:batch:<batch>      => SET of trigger ids for a bulk batch
//
// Index entries can go stale when a trigger is saved again under another
// flow; List re-checks every payload against the filter.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

type redisRunPayload struct {
	ID         string `json:"id"`
	TriggerID  string `json:"trigger_id"`
	FlowID     string `json:"flow_id"`
	BatchID    string `json:"batch_id,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultRedisPrefix.
// Close closes client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis connects with a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisStore(client, ""), nil
}

func (s *RedisStore) keyRun(triggerID string) string { return s.prefix + "run:" + triggerID }
func (s *RedisStore) keyAll() string                 { return s.prefix + "idx:all" }
func (s *RedisStore) keyFlow(flowID string) string   { return s.prefix + "idx:flow:" + flowID }
func (s *RedisStore) keyBatch(batchID string) string { return s.prefix + "idx:batch:" + batchID }

func (s *RedisStore) Save(ctx context.Context, run Run) error {
	if err := run.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(redisRunPayload{
		ID:         run.ID.String(),
		TriggerID:  run.TriggerID,
		FlowID:     run.FlowID,
		BatchID:    run.BatchID,
		WebhookURL: run.WebhookURL,
		CreatedAt:  run.CreatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.TriggerID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), run.TriggerID)
	pipe.SAdd(ctx, s.keyFlow(run.FlowID), run.TriggerID)
	if run.BatchID != "" {
		pipe.SAdd(ctx, s.keyBatch(run.BatchID), run.TriggerID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal: save %q: %w", run.TriggerID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, triggerID string) (Run, error) {
	data, err := s.client.Get(ctx, s.keyRun(triggerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("journal: get %q: %w", triggerID, err)
	}
	return decodeRedisRun(data)
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]Run, error) {
	var ids []string
	var err error

	switch {
	case filter.FlowID != "" && filter.BatchID != "":
		ids, err = s.client.SInter(ctx, s.keyFlow(filter.FlowID), s.keyBatch(filter.BatchID)).Result()
	case filter.FlowID != "":
		ids, err = s.client.SMembers(ctx, s.keyFlow(filter.FlowID)).Result()
	case filter.BatchID != "":
		ids, err = s.client.SMembers(ctx, s.keyBatch(filter.BatchID)).Result()
	default:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	if len(ids) == 0 {
		return []Run{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("journal: list: %w", err)
	}

	runs := make([]Run, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("journal: list: %w", err)
		}
		run, err := decodeRedisRun(data)
		if err != nil {
			return nil, err
		}
		if filter.matches(run) {
			runs = append(runs, run)
		}
	}
	return sortRuns(runs, filter.Limit), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRedisRun(data []byte) (Run, error) {
	var p redisRunPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Run{}, fmt.Errorf("journal: decode run: %w", err)
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return Run{}, fmt.Errorf("journal: decode run %q: %w", p.TriggerID, err)
	}
	return Run{
		ID:         id,
		TriggerID:  p.TriggerID,
		FlowID:     p.FlowID,
		BatchID:    p.BatchID,
		WebhookURL: p.WebhookURL,
		CreatedAt:  fromUnixNano(p.CreatedAt),
	}, nil
}
