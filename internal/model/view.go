package model

import "time"

// ViewEvent は「閲覧者がストーリーを見た」ことを表す追記専用レコード。
// ストーリーレコードに閲覧者配列を埋め込むと人気投稿で無制限に肥大化するため、
// 閲覧状態は常にこのレコードの有無から導出する。
type ViewEvent struct {
	ID       string // ViewEventID(storyID, viewerID) で決定的に生成
	StoryID  string
	ViewerID string
	SeenAt   time.Time
}

// ViewEventID は(ストーリー, 閲覧者)ペアごとに高々1件を保証する決定的IDを生成する。
// 2回目以降の閲覧記録は同一IDへの上書きとなり、重複レコードは発生しない。
func ViewEventID(storyID, viewerID string) string {
	return storyID + "_" + viewerID
}
