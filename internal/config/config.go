package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Media storage
	MediaRoot    string // メディアオブジェクトを保存するディレクトリ
	MediaBaseURL string // media_urlの解決に使用するベースURL（例: https://cdn.example.com/media）

	// Feed
	FeedPageSize    int           // queryActiveの固定ページサイズ
	ProfileCacheTTL time.Duration // 投稿者プロフィールキャッシュのTTL
	ProfileCacheMax int           // プロフィールキャッシュの最大エントリ数

	// Upload
	UploadMaxSize    int64         // アップロードの最大サイズ（バイト）
	CaptionMaxLength int           // キャプションの最大文字数
	ImportTimeout    time.Duration // リモートメディア取り込みのHTTPタイムアウト
	ImportMaxSize    int64         // リモートメディア取り込みの最大サイズ（バイト）

	// Rate Limit
	RateLimitGeneral int // API全般のレート（req/min/user）
	RateLimitUpload  int // 投稿系のレート（req/min/user）

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.MediaRoot = os.Getenv("MEDIA_ROOT")
	if cfg.MediaRoot == "" {
		missing = append(missing, "MEDIA_ROOT")
	}

	cfg.MediaBaseURL = os.Getenv("MEDIA_BASE_URL")
	if cfg.MediaBaseURL == "" {
		missing = append(missing, "MEDIA_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// 末尾スラッシュの揺れを吸収する
	cfg.MediaBaseURL = strings.TrimRight(cfg.MediaBaseURL, "/")

	// Optional fields with defaults
	cfg.FeedPageSize = getEnvInt("FEED_PAGE_SIZE", 50)
	cfg.ProfileCacheTTL = getEnvDuration("PROFILE_CACHE_TTL", 5*time.Minute)
	cfg.ProfileCacheMax = getEnvInt("PROFILE_CACHE_MAX", 10000)
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 10*1024*1024)
	cfg.CaptionMaxLength = getEnvInt("CAPTION_MAX_LENGTH", 500)
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 10*time.Second)
	cfg.ImportMaxSize = getEnvInt64("IMPORT_MAX_SIZE", 5*1024*1024)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
