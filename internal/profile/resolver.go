package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/tabistory/internal/repository"
)

// maxIDsPerChunk は1回のid-in-set検索で渡せるIDの上限。
// プロフィールストア側のクエリ引数数制約で、これを超える集合は
// チャンクに分割して並列に問い合わせる。
const maxIDsPerChunk = 10

// ChunkFailureRecorder はチャンク検索失敗の計測インターフェース。
type ChunkFailureRecorder interface {
	RecordProfileChunkFailure()
}

// Resolver は投稿者プロフィールのバッチ解決を行う。
// キャッシュミスしたIDをチャンク分割し、並列に問い合わせて
// キャッシュへ書き込む。失敗したチャンクはログに記録してスキップし、
// フィード組み立て全体を失敗させない。
type Resolver struct {
	cache   *Cache
	repo    repository.ProfileRepository
	logger  *slog.Logger
	metrics ChunkFailureRecorder // nilの場合は計測しない
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(cache *Cache, repo repository.ProfileRepository, logger *slog.Logger, metrics ChunkFailureRecorder) *Resolver {
	return &Resolver{
		cache:   cache,
		repo:    repo,
		logger:  logger,
		metrics: metrics,
	}
}

// Cache は保持しているキャッシュを返す。
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// MissingIDs は指定ID集合のうちキャッシュに新鮮なエントリがないIDを返す。
// 入力順を保持する。
func (r *Resolver) MissingIDs(userIDs []string) []string {
	var missing []string
	for _, id := range userIDs {
		if _, ok := r.cache.Get(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// RefreshBatch は指定ID集合のプロフィールを一括リフレッシュする。
// IDをmaxIDsPerChunk件ずつのチャンクに分割し、チャンクごとに並列で
// 問い合わせて全チャンクの完了を待つ（fan-out/fan-in）。
// 失敗したチャンクのユーザーはキャッシュに書き込まれず、
// 呼び出し側がフォールバック表示で処理する。
func (r *Resolver) RefreshBatch(ctx context.Context, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}

	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < len(userIDs); i += maxIDsPerChunk {
		end := i + maxIDsPerChunk
		if end > len(userIDs) {
			end = len(userIDs)
		}
		chunk := userIDs[i:end]

		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()

			profiles, err := r.repo.FindByIDs(ctx, chunk)
			if err != nil {
				r.logger.Error("プロフィールチャンクの取得に失敗しました",
					slog.Int("chunk_size", len(chunk)),
					slog.String("error", err.Error()),
				)
				if r.metrics != nil {
					r.metrics.RecordProfileChunkFailure()
				}
				return // このチャンクのユーザーはフォールバック表示になる
			}

			for _, p := range profiles {
				r.cache.Set(p, now)
			}
		}(chunk)
	}

	wg.Wait()
}
