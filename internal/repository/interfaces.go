// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
)

// StoryRepository はストーリー台帳（コンテンツレジャー）の永続化インターフェース。
type StoryRepository interface {
	// Create はストーリーレコードを作成する。
	// expires_atは呼び出し側で created_at + 24h に確定済みであること。
	Create(ctx context.Context, story *model.Story) error

	// FindByID は指定IDのストーリーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Story, error)

	// ListActive はnow時点で有効な（expires_at > now の）ストーリーを
	// expires_at降順・limit件上限で取得する。
	// 上限超過分の古い有効ストーリーが落ちるのは予測可能なレイテンシを
	// 優先した意図的なトレードオフであり、フィードは網羅的でなくてよい。
	ListActive(ctx context.Context, now time.Time, limit int) ([]model.Story, error)

	// Delete は指定IDのストーリーレコードを削除する。
	// メディアオブジェクトの削除は呼び出し側の責務。
	Delete(ctx context.Context, id string) error
}

// ViewRepository は閲覧台帳（ビューレジャー）の永続化インターフェース。
type ViewRepository interface {
	// Upsert は閲覧イベントを決定的ID（storyID + "_" + viewerID）で冪等に
	// UPSERTする。2回目以降はseen_atの上書きであり重複レコードは生じない。
	Upsert(ctx context.Context, event *model.ViewEvent) error

	// ListViewedStoryIDs はseen_at > since の閲覧イベントからストーリーID集合を返す。
	// sinceにnow-24hを渡すことで、現在有効なコンテンツに関係するイベントのみに絞る。
	ListViewedStoryIDs(ctx context.Context, viewerID string, since time.Time) (map[string]struct{}, error)
}

// ProfileRepository はプロフィールストアの読み取りインターフェース。
// id-in-set の一括検索のみを提供する。書き込みは外部コラボレータの責務。
type ProfileRepository interface {
	// FindByIDs は指定ID集合のプロフィールを一括取得する。
	// 1回の呼び出しで渡せるIDはmaxProfilesPerQuery（10件）まで。
	// 存在しないIDは結果から単に欠落する。
	FindByIDs(ctx context.Context, userIDs []string) ([]model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
