package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository"
	"github.com/Thykp/SPM-Team2-sub002/pkg/metrics"
)

// scheduleRepository keeps deferred notifications in a single sorted set:
// score = epoch-millisecond fire time, member = JSON-serialized event.
type scheduleRepository struct {
	client  *redis.Client
	key     string
	metrics *metrics.Metrics
}

func NewScheduleRepository(url, key string, m *metrics.Metrics) (repository.ScheduleRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &scheduleRepository{client: client, key: key, metrics: m}, nil
}

// NewScheduleRepositoryWithClient is used by callers that already hold a client.
func NewScheduleRepositoryWithClient(client *redis.Client, key string, m *metrics.Metrics) repository.ScheduleRepository {
	return &scheduleRepository{client: client, key: key, metrics: m}
}

func (r *scheduleRepository) Add(ctx context.Context, entry *model.ScheduledEntry) error {
	member, err := json.Marshal(entry.Event)
	if err != nil {
		return fmt.Errorf("failed to marshal scheduled event: %w", err)
	}

	err = r.client.ZAdd(ctx, r.key, redis.Z{
		Score:  float64(entry.SendAt),
		Member: member,
	}).Err()
	if err != nil {
		r.metrics.RedisOperations.WithLabelValues("zadd", "error").Inc()
		return fmt.Errorf("failed to add scheduled entry: %w", err)
	}

	r.metrics.RedisOperations.WithLabelValues("zadd", "success").Inc()
	return nil
}

// Due returns entries with fire time <= now in ascending fire-time order.
// The fetch is non-destructive; callers remove entries explicitly.
func (r *scheduleRepository) Due(ctx context.Context, now time.Time) ([]*model.ScheduledEntry, error) {
	members, err := r.client.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		r.metrics.RedisOperations.WithLabelValues("zrangebyscore", "error").Inc()
		return nil, fmt.Errorf("failed to fetch due entries: %w", err)
	}
	r.metrics.RedisOperations.WithLabelValues("zrangebyscore", "success").Inc()

	entries := make([]*model.ScheduledEntry, 0, len(members))
	for _, z := range members {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}

		entry := &model.ScheduledEntry{
			SendAt: int64(z.Score),
			Raw:    json.RawMessage(raw),
		}
		if err := json.Unmarshal([]byte(raw), &entry.Event); err != nil {
			// Malformed members are surfaced so the poller can drop them.
			entry.Event = model.NotificationEvent{}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *scheduleRepository) Remove(ctx context.Context, entry *model.ScheduledEntry) error {
	member := []byte(entry.Raw)
	if len(member) == 0 {
		var err error
		member, err = json.Marshal(entry.Event)
		if err != nil {
			return fmt.Errorf("failed to marshal scheduled event: %w", err)
		}
	}

	if err := r.client.ZRem(ctx, r.key, string(member)).Err(); err != nil {
		r.metrics.RedisOperations.WithLabelValues("zrem", "error").Inc()
		return fmt.Errorf("failed to remove scheduled entry: %w", err)
	}

	r.metrics.RedisOperations.WithLabelValues("zrem", "success").Inc()
	return nil
}
