package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSetIdempotency(t *testing.T) {
	client := getRedisClient(t)
	adapter := NewRedisAdapter(client)
	ctx := context.Background()

	key := fmt.Sprintf("chat:req:%d", time.Now().UnixNano())

	first, err := adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("first set: %v", err)
	}
	if !first {
		t.Error("expected first set to succeed")
	}

	second, err := adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if second {
		t.Error("expected duplicate key to be rejected")
	}
}
