package presence

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type nopConn string

func (c nopConn) ID() string        { return string(c) }
func (c nopConn) Send([]byte) error { return nil }
func (c nopConn) Close() error      { return nil }

func zapNop() *zap.Logger { return zap.NewNop() }

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
