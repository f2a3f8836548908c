// Package profile は投稿者プロフィールのキャッシュとバッチ解決を提供する。
// フィード組み立てのたびにプロフィールストアへ問い合わせないための
// プロセス内キャッシュと、チャンク分割付きの一括リフレッシュを含む。
package profile

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/tabistory/internal/model"
)

// DefaultCacheTTL はプロフィールキャッシュのデフォルトTTL。
// TTLを超えたエントリは不在として扱い、信頼する前に再取得する。
const DefaultCacheTTL = 5 * time.Minute

// CacheEntry はキャッシュされた投稿者の表示情報を表す。
// エントリは書き込み後に変更されない（更新は全置換）ため、
// 複数のフィード組み立てから無調停で並行アクセスしてよい。
// cached_atはlast-writer-winsで、TTL内の新鮮さのみを保証する。
type CacheEntry struct {
	Profile  model.Profile
	CachedAt time.Time
}

// Cache は投稿者プロフィールのTTL付きプロセス内キャッシュ。
// TTL判定はアクセス時に行われ、バックグラウンドのスイープに依存しない。
type Cache struct {
	lru *expirable.LRU[string, CacheEntry]
}

// NewCache はCacheを生成する。maxEntriesが0以下の場合はデフォルト値10000、
// ttlが0以下の場合はDefaultCacheTTLを使用する。
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		lru: expirable.NewLRU[string, CacheEntry](maxEntries, nil, ttl),
	}
}

// Get は指定ユーザーのキャッシュエントリを返す。
// エントリが存在しない、またはTTLを超過している場合はok=falseを返す。
func (c *Cache) Get(userID string) (CacheEntry, bool) {
	return c.lru.Get(userID)
}

// Set はプロフィールをcached_at=nowでキャッシュに書き込む。
// 既存エントリは全置換される。
func (c *Cache) Set(p model.Profile, now time.Time) {
	c.lru.Add(p.UserID, CacheEntry{Profile: p, CachedAt: now})
}

// Clear は全エントリを破棄する。ログアウト時に使用する。
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len は現在のエントリ数を返す。テストおよびメトリクス用。
func (c *Cache) Len() int {
	return c.lru.Len()
}
