package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// DefaultJobLogPrefix namespaces the per-job log lists
const DefaultJobLogPrefix = "sync:logs:job:"

const logWriteTimeout = 2 * time.Second

// RedisLogStore keeps the log tail of each sync job in a Redis list
// so that any instance can serve it while the job runs.
type RedisLogStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisLogStore creates a log store; lists expire ttl after their last write
func NewRedisLogStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisLogStore{
		client:    client,
		keyPrefix: DefaultJobLogPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (s *RedisLogStore) key(jobID string) string {
	return s.keyPrefix + jobID
}

// Sink returns the LogSink that appends to the list of a job
func (s *RedisLogStore) Sink(jobID string) productsync.LogSink {
	return productsync.LogSinkFunc(func(line productsync.LogLine) {
		ctx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
		defer cancel()

		key := s.key(jobID)
		pipe := s.client.TxPipeline()
		pipe.RPush(ctx, key, line.String())
		pipe.Expire(ctx, key, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			// the run must not fail because its log tail could not be stored
			s.logger.Warn("failed to append job log line", zap.String("job_id", jobID), zap.Error(err))
		}
	})
}

// Lines returns the log lines of a job starting at index from
func (s *RedisLogStore) Lines(ctx context.Context, jobID string, from int) ([]string, error) {
	if from < 0 {
		from = 0
	}
	lines, err := s.client.LRange(ctx, s.key(jobID), int64(from), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job log: %w", err)
	}
	return lines, nil
}

// Delete drops the log of a job
func (s *RedisLogStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, s.key(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to delete job log: %w", err)
	}
	return nil
}
