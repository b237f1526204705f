package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func stubRedis(t *testing.T, pingErr error) *redis.Options {
	t.Helper()
	origNew, origPing := newRedisClient, redisPing
	t.Cleanup(func() { newRedisClient, redisPing = origNew, origPing })

	got := &redis.Options{}
	newRedisClient = func(opts *redis.Options) *redis.Client {
		*got = *opts
		return redis.NewClient(&redis.Options{Addr: "localhost:0"})
	}
	redisPing = func(context.Context, *redis.Client) error { return pingErr }
	return got
}

func TestNewRedisDB_PingError(t *testing.T) {
	stubRedis(t, errors.New("ping failed"))

	_, err := NewRedisDB(RedisOptions{Addr: "cache:6379"})
	if err == nil || !strings.Contains(err.Error(), "cache:6379") {
		t.Fatalf("expected ping error naming addr, got %v", err)
	}
}

func TestNewRedisDB_SetsOptions(t *testing.T) {
	got := stubRedis(t, nil)

	db, err := NewRedisDB(RedisOptions{Addr: "localhost:6379", Password: "pass", DB: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if got.Addr != "localhost:6379" || got.Password != "pass" || got.DB != 2 {
		t.Fatalf("unexpected connection options: %+v", got)
	}
	if got.PoolSize != 10 {
		t.Fatalf("expected default PoolSize 10, got %d", got.PoolSize)
	}
	if got.DialTimeout != 5*time.Second || got.ReadTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts: dial=%v read=%v", got.DialTimeout, got.ReadTimeout)
	}
}

func TestNewRedisDB_CustomPoolSize(t *testing.T) {
	got := stubRedis(t, nil)

	db, err := NewRedisDB(RedisOptions{Addr: "localhost:6379", PoolSize: 32})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if got.PoolSize != 32 {
		t.Fatalf("expected PoolSize 32, got %d", got.PoolSize)
	}
}

func TestRedisDB_Health(t *testing.T) {
	stubRedis(t, errors.New("health failed"))

	db := &RedisDB{Client: &redis.Client{}}
	if err := db.Health(context.Background()); err == nil {
		t.Fatal("expected health error")
	}
}

func TestRedisDB_CloseNil(t *testing.T) {
	if err := (&RedisDB{}).Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
