package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Options describe the one redis the API and the worker share: idempotency
// keys, import locks and the asynq queue all live there.
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func (o Options) client() *redis.Options {
	return &redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB, PoolSize: o.PoolSize}
}

// Asynq returns the same connection settings for the queue client and server.
func (o Options) Asynq() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB, PoolSize: o.PoolSize}
}

// OpenRedis connects and pings once.
func OpenRedis(o Options) (*redis.Client, error) {
	r := redis.NewClient(o.client())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis ping %s: %w", o.Addr, err)
	}
	logrus.WithFields(logrus.Fields{"addr": o.Addr, "db": o.DB}).Info("redis: connected")
	return r, nil
}
