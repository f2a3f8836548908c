// Package model はドメインモデルを定義する。
package model

import "time"

// StoryTTL はストーリーの公開期間。expires_atは作成時に
// created_at + StoryTTL で確定し、以後再計算しない。
const StoryTTL = 24 * time.Hour

// MediaType はストーリーのメディア種別を表す。
type MediaType string

const (
	// MediaTypeImage は画像ストーリー。
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo は動画ストーリー。
	MediaTypeVideo MediaType = "video"
	// MediaTypeText はテキストのみのストーリー。メディアオブジェクトを持たない。
	MediaTypeText MediaType = "text"
)

// StoryStatus はメディア処理パイプラインの状態を表す。
// 非同期変換パイプライン導入時の予約フィールドで、現状は常にreadyを書き込む。
type StoryStatus string

const (
	// StoryStatusProcessing はメディア処理中を示す。
	StoryStatusProcessing StoryStatus = "processing"
	// StoryStatusReady は配信可能な状態を示す。
	StoryStatusReady StoryStatus = "ready"
)

// Story は24時間で失効するストーリー投稿を表す。
// 作成後は更新されない追記専用レコード。失効は自然消滅（クエリで除外）か
// 投稿者による明示削除のいずれかで、expires_atのインプレース更新は行わない。
type Story struct {
	ID        string
	AuthorID  string
	MediaRef  string // オブジェクトストレージ上のハンドル。削除時に使用する
	MediaURL  string // 配信用URL
	MediaType MediaType
	Caption   string
	Status    StoryStatus
	CreatedAt time.Time
	ExpiresAt time.Time // CreatedAt + StoryTTL で固定
}

// IsActive はnow時点でストーリーが配信対象かを返す。
func (s *Story) IsActive(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// StoryUser はフィード組み立ての出力単位。投稿者ごとにストーリーを
// まとめたもので、永続化はされない。
type StoryUser struct {
	UserID    string
	Username  string
	Avatar    string
	Stories   []Story // created_at昇順（再生順）
	HasUnseen bool
}

// ValidMediaType はメディア種別が定義済みかを返す。
func ValidMediaType(t MediaType) bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeText:
		return true
	default:
		return false
	}
}
