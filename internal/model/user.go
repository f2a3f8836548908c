package model

import "time"

// Profile はプロフィールストアに保存される投稿者の表示情報を表す。
type Profile struct {
	UserID    string
	Username  string
	AvatarURL string
}

// Viewer はセッションから供給されるリクエスト主体の表示情報を表す。
// 自分自身の表示名・アバターはプロフィールストアを経由せず、
// 常にセッションコンテキストから取得する。
type Viewer struct {
	ID        string
	Username  string
	AvatarURL string
}

// Session はユーザーのログインセッションを表す。
// 認証フロー自体は外部コラボレータであり、本サービスは検証のみを行う。
type Session struct {
	ID        string
	UserID    string
	Username  string
	AvatarURL string
	ExpiresAt time.Time
	CreatedAt time.Time
}
