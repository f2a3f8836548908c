package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
)

// PostgresStoryRepo はPostgreSQLを使用したストーリー台帳リポジトリ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

// Create はストーリーレコードを作成する。
func (r *PostgresStoryRepo) Create(ctx context.Context, story *model.Story) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stories (id, author_id, media_ref, media_url, media_type, caption, status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		story.ID, story.AuthorID, story.MediaRef, story.MediaURL,
		string(story.MediaType), story.Caption, string(story.Status),
		story.CreatedAt, story.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("ストーリーの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのストーリーを取得する。見つからない場合はnilを返す。
func (r *PostgresStoryRepo) FindByID(ctx context.Context, id string) (*model.Story, error) {
	story := &model.Story{}
	var mediaType, status string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, media_ref, media_url, media_type, caption, status, created_at, expires_at
		 FROM stories WHERE id = $1`,
		id,
	).Scan(
		&story.ID, &story.AuthorID, &story.MediaRef, &story.MediaURL,
		&mediaType, &story.Caption, &status,
		&story.CreatedAt, &story.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ストーリーの取得に失敗しました: %w", err)
	}

	story.MediaType = model.MediaType(mediaType)
	story.Status = model.StoryStatus(status)
	return story, nil
}

// ListActive はnow時点で有効なストーリーをexpires_at降順・limit件上限で取得する。
func (r *PostgresStoryRepo) ListActive(ctx context.Context, now time.Time, limit int) ([]model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author_id, media_ref, media_url, media_type, caption, status, created_at, expires_at
		 FROM stories
		 WHERE expires_at > $1
		 ORDER BY expires_at DESC
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("有効なストーリーの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		var story model.Story
		var mediaType, status string
		if err := rows.Scan(
			&story.ID, &story.AuthorID, &story.MediaRef, &story.MediaURL,
			&mediaType, &story.Caption, &status,
			&story.CreatedAt, &story.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("ストーリー行の読み取りに失敗しました: %w", err)
		}
		story.MediaType = model.MediaType(mediaType)
		story.Status = model.StoryStatus(status)
		stories = append(stories, story)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ストーリー一覧の走査に失敗しました: %w", err)
	}

	return stories, nil
}

// Delete は指定IDのストーリーレコードを削除する。
// 既に存在しない場合もエラーにはしない（直前削除との競合は無害なレース）。
func (r *PostgresStoryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ストーリーの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
