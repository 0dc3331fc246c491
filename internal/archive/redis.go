package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ronaldwang03/agent-os-sub001/internal/config"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

// Redis archives runs as JSON values with a configurable key prefix and
// TTL
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Archiver = (*Redis)(nil)

// NewRedis creates a redis-backed run archive
func NewRedis(cfg config.ArchiveConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

func (a *Redis) Put(ctx context.Context, run *api.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, a.keyFor(run.ID), data, a.ttl).Err()
}

func (a *Redis) Get(ctx context.Context, id api.RunID) (*api.Run, error) {
	data, err := a.client.Get(ctx, a.keyFor(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}

	var run api.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (a *Redis) Close() error {
	return a.client.Close()
}

func (a *Redis) keyFor(id api.RunID) string {
	return fmt.Sprintf("%s:run:%s", a.prefix, id)
}
