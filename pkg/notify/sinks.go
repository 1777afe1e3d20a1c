package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go-recruitment-scheduler/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// RedisSink pushes notifications as JSON onto a Redis list consumed by the
// delivery workers.
type RedisSink struct {
	client *goredis.Client
	key    string
}

func NewRedisSink(client *goredis.Client, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Send(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", s.key, err)
	}
	return nil
}

// LogSink only logs. Used when Redis is not configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, n domain.Notification) error {
	s.logger.Info("Notification",
		"user_id", n.UserID,
		"kind", n.Kind,
		"title", n.Title,
	)
	return nil
}
