package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-identity/app/entity"
	"github.com/vibast-solutions/ms-go-identity/app/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*service.IdentityCache, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := service.NewIdentityCache(rdb, 300*time.Second)

	return cache, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func cacheTestUser() *entity.User {
	return &entity.User{
		ID:        1,
		Username:  "alice",
		Email:     "alice@example.com",
		Role:      entity.RoleUser,
		Confirmed: true,
	}
}

func TestIdentityCache_SetGet(t *testing.T) {
	cache, mr, cleanup := newTestCache(t)
	defer cleanup()

	if err := cache.Set(context.Background(), cacheTestUser()); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	cached, err := cache.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cached == nil {
		t.Fatalf("expected cache hit")
	}
	if cached.ID != 1 || cached.Email != "alice@example.com" || cached.Role != entity.RoleUser || !cached.Confirmed {
		t.Fatalf("unexpected payload: %+v", cached)
	}

	ttl := mr.TTL("identity:alice@example.com")
	if ttl != 300*time.Second {
		t.Fatalf("expected 300s TTL, got %v", ttl)
	}
}

func TestIdentityCache_Miss(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()

	cached, err := cache.Get(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cached != nil {
		t.Fatalf("expected miss, got %+v", cached)
	}
}

func TestIdentityCache_ExpiresAfterTTL(t *testing.T) {
	cache, mr, cleanup := newTestCache(t)
	defer cleanup()

	if err := cache.Set(context.Background(), cacheTestUser()); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(301 * time.Second)

	cached, err := cache.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cached != nil {
		t.Fatalf("expected entry to expire, got %+v", cached)
	}
}

func TestIdentityCache_Invalidate(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()

	if err := cache.Set(context.Background(), cacheTestUser()); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := cache.Invalidate(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	cached, err := cache.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cached != nil {
		t.Fatalf("expected miss after invalidation, got %+v", cached)
	}
}

func TestIdentityCache_UnknownSchemaVersionIsMiss(t *testing.T) {
	cache, mr, cleanup := newTestCache(t)
	defer cleanup()

	if err := mr.Set("identity:alice@example.com", `{"v":99,"id":1,"email":"alice@example.com","role":"admin","confirmed":true}`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	cached, err := cache.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cached != nil {
		t.Fatalf("expected unknown schema to read as miss, got %+v", cached)
	}
}

func TestIdentityCache_CorruptPayloadIsMiss(t *testing.T) {
	cache, mr, cleanup := newTestCache(t)
	defer cleanup()

	if err := mr.Set("identity:alice@example.com", "not-json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	cached, err := cache.Get(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if cached != nil {
		t.Fatalf("expected corrupt payload to read as miss, got %+v", cached)
	}
}
