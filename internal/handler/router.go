package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tabistory/internal/metrics"
	"github.com/hitoshi/tabistory/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// フィード
	FeedAssembler FeedAssemblerInterface

	// ストーリー
	StoryService StoryServiceInterface
	Importer     ImporterInterface
	StoryConfig  StoryHandlerConfig

	// メトリクス
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer

	// メディア配信（開発・検証用。本番ではCDNが配信する）
	MediaRoot string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeaders → Recovery → Logging → SessionMiddleware → RateLimitMiddleware
//
// /health・/metrics・/media/* はミドルウェアチェーンの外（認証不要）に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())

	// 型付きnilをインターフェースに入れないためのガード
	var statusRecorder middleware.HTTPStatusRecorder
	if deps.Collector != nil {
		statusRecorder = deps.Collector
	}
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, statusRecorder))

	feedHandler := NewFeedHandler(deps.FeedAssembler)
	storyHandler := NewStoryHandler(deps.StoryService, deps.Importer, deps.StoryConfig)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// メディア配信
	if deps.MediaRoot != "" {
		fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaRoot)))
		r.Get("/media/*", fileServer.ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/stories", func(r chi.Router) {
			// GET /api/stories/feed - フィード取得
			r.Get("/feed", feedHandler.GetFeed)

			// 投稿系には専用レート制限を追加
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/", storyHandler.UploadStory)
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/import", storyHandler.ImportStory)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/view", storyHandler.RecordView)
				r.Delete("/", storyHandler.DeleteStory)
			})
		})
	})

	return r
}
