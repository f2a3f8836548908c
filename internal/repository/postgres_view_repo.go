package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
)

// PostgresViewRepo はPostgreSQLを使用した閲覧台帳リポジトリ。
type PostgresViewRepo struct {
	db *sql.DB
}

// NewPostgresViewRepo はPostgresViewRepoを生成する。
func NewPostgresViewRepo(db *sql.DB) *PostgresViewRepo {
	return &PostgresViewRepo{db: db}
}

// Upsert は閲覧イベントを決定的IDで冪等にUPSERTする。
// 主キー衝突時はseen_atを上書きする。(story, viewer)ペアごとに
// 高々1件の不変条件はID生成規則とPK制約の組み合わせで保証される。
func (r *PostgresViewRepo) Upsert(ctx context.Context, event *model.ViewEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO story_views (id, story_id, viewer_id, seen_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET seen_at = EXCLUDED.seen_at`,
		event.ID, event.StoryID, event.ViewerID, event.SeenAt,
	)
	if err != nil {
		return fmt.Errorf("閲覧イベントの記録に失敗しました: %w", err)
	}
	return nil
}

// ListViewedStoryIDs はseen_at > since の閲覧イベントからストーリーID集合を返す。
func (r *PostgresViewRepo) ListViewedStoryIDs(ctx context.Context, viewerID string, since time.Time) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT story_id FROM story_views
		 WHERE viewer_id = $1 AND seen_at > $2`,
		viewerID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("閲覧済みストーリーの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	viewed := make(map[string]struct{})
	for rows.Next() {
		var storyID string
		if err := rows.Scan(&storyID); err != nil {
			return nil, fmt.Errorf("閲覧イベント行の読み取りに失敗しました: %w", err)
		}
		viewed[storyID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("閲覧イベントの走査に失敗しました: %w", err)
	}

	return viewed, nil
}

// compile-time interface check
var _ ViewRepository = (*PostgresViewRepo)(nil)
