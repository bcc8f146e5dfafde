package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JustJay7/gosomi-court/internal/database"
	"github.com/JustJay7/gosomi-court/pkg/logger"
)

type RedisPublisher struct {
	rdb     *goredis.Client
	channel string
	logger  *logger.Logger
}

// NewRedisPublisher connects to addr and publishes notifications as JSON on
// channel.
func NewRedisPublisher(addr, channel string, log *logger.Logger) (*RedisPublisher, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		return nil, fmt.Errorf("missing redis channel")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		logger:  log.With("component", "redis_publisher"),
	}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, n *database.Notification) error {
	raw, err := json.Marshal(Event{
		UserID:  n.UserID,
		CaseID:  n.CaseID,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
	})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
