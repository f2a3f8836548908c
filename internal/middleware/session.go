// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tabistory/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// viewerContextKey はリクエストコンテキストに閲覧者情報を格納するためのキー。
var viewerContextKey = contextKey("viewer")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みの閲覧者情報（ID・表示名・アバター）をリクエストコンテキストに
// 注入する。自分自身の表示情報はプロフィールストアを経由せず、常にこの
// セッション由来の値を使用する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 2. セッションの有効性を検証
			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("セッションの検索に失敗しました",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. 閲覧者情報をコンテキストに注入
			viewer := model.Viewer{
				ID:        session.UserID,
				Username:  session.Username,
				AvatarURL: session.AvatarURL,
			}
			ctx := context.WithValue(r.Context(), viewerContextKey, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerFromContext はリクエストコンテキストから閲覧者情報を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ViewerFromContext(ctx context.Context) (model.Viewer, error) {
	viewer, ok := ctx.Value(viewerContextKey).(model.Viewer)
	if !ok || viewer.ID == "" {
		return model.Viewer{}, fmt.Errorf("viewer not found in context")
	}
	return viewer, nil
}

// ContextWithViewer はコンテキストに閲覧者情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithViewer(ctx context.Context, viewer model.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}
