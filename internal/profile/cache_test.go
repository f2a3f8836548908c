package profile

import (
	"testing"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
)

// TestCache_SetAndGet は書き込んだプロフィールが取得できることを検証する。
func TestCache_SetAndGet(t *testing.T) {
	cache := NewCache(100, time.Minute)

	now := time.Now().UTC()
	cache.Set(model.Profile{UserID: "user1", Username: "hitoshi", AvatarURL: "https://cdn.example.com/a.png"}, now)

	entry, ok := cache.Get("user1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.Profile.Username != "hitoshi" {
		t.Errorf("Username = %q, want %q", entry.Profile.Username, "hitoshi")
	}
	if !entry.CachedAt.Equal(now) {
		t.Errorf("CachedAt = %v, want %v", entry.CachedAt, now)
	}
}

// TestCache_MissOnUnknownID は未登録IDでキャッシュミスになることを検証する。
func TestCache_MissOnUnknownID(t *testing.T) {
	cache := NewCache(100, time.Minute)

	if _, ok := cache.Get("unknown"); ok {
		t.Error("expected cache miss for unknown id")
	}
}

// TestCache_ExpiresAfterTTL はTTL超過後のエントリが不在扱いになることを検証する。
func TestCache_ExpiresAfterTTL(t *testing.T) {
	cache := NewCache(100, 50*time.Millisecond)

	cache.Set(model.Profile{UserID: "user1", Username: "hitoshi"}, time.Now().UTC())

	if _, ok := cache.Get("user1"); !ok {
		t.Fatal("expected cache hit before TTL")
	}

	time.Sleep(120 * time.Millisecond)

	if _, ok := cache.Get("user1"); ok {
		t.Error("expected cache miss after TTL")
	}
}

// TestCache_SetReplacesEntry は同一IDへの再書き込みでエントリが全置換されることを検証する。
func TestCache_SetReplacesEntry(t *testing.T) {
	cache := NewCache(100, time.Minute)

	cache.Set(model.Profile{UserID: "user1", Username: "old"}, time.Now().UTC())
	cache.Set(model.Profile{UserID: "user1", Username: "new"}, time.Now().UTC())

	entry, ok := cache.Get("user1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.Profile.Username != "new" {
		t.Errorf("Username = %q, want %q", entry.Profile.Username, "new")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

// TestCache_Clear は全エントリが破棄されることを検証する。
func TestCache_Clear(t *testing.T) {
	cache := NewCache(100, time.Minute)

	now := time.Now().UTC()
	cache.Set(model.Profile{UserID: "user1"}, now)
	cache.Set(model.Profile{UserID: "user2"}, now)

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
	if _, ok := cache.Get("user1"); ok {
		t.Error("expected cache miss after Clear")
	}
}
