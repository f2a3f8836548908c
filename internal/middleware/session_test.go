package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
)

// mockSessionFinder はテスト用のSessionFinderモック。
type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// TestSessionMiddleware_ValidSession は有効なセッションで閲覧者情報が
// コンテキストに注入されることを検証する。
func TestSessionMiddleware_ValidSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "session-abc" {
				t.Errorf("session id = %q, want %q", id, "session-abc")
			}
			return &model.Session{
				ID:        id,
				UserID:    "user1",
				Username:  "ひとし",
				AvatarURL: "https://cdn.example.com/a.png",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	var gotViewer model.Viewer
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, err := ViewerFromContext(r.Context())
		if err != nil {
			t.Errorf("ViewerFromContext failed: %v", err)
		}
		gotViewer = viewer
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotViewer.ID != "user1" || gotViewer.Username != "ひとし" || gotViewer.AvatarURL != "https://cdn.example.com/a.png" {
		t.Errorf("viewer = %+v, want session identity", gotViewer)
	}
}

// TestSessionMiddleware_MissingCookie はCookieなしのリクエストに401が
// 返ることを検証する。
func TestSessionMiddleware_MissingCookie(t *testing.T) {
	handlerCalled := false
	handler := NewSessionMiddleware(&mockSessionFinder{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if handlerCalled {
		t.Error("next handler should not be called")
	}
}

// TestSessionMiddleware_UnknownSession は存在しないセッションに401が
// 返ることを検証する。
func TestSessionMiddleware_UnknownSession(t *testing.T) {
	handler := NewSessionMiddleware(&mockSessionFinder{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "unknown"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestSessionMiddleware_FinderError はセッション検索失敗時に401が返る
// ことを検証する。
func TestSessionMiddleware_FinderError(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("接続がタイムアウトしました")
		},
	}
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stories/feed", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestViewerFromContext_Empty は閲覧者情報のないコンテキストでエラーに
// なることを検証する。
func TestViewerFromContext_Empty(t *testing.T) {
	if _, err := ViewerFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
}

// TestContextWithViewer は注入した閲覧者情報が取得できることを検証する。
func TestContextWithViewer(t *testing.T) {
	viewer := model.Viewer{ID: "user1", Username: "ひとし"}
	ctx := ContextWithViewer(context.Background(), viewer)

	got, err := ViewerFromContext(ctx)
	if err != nil {
		t.Fatalf("ViewerFromContext failed: %v", err)
	}
	if got != viewer {
		t.Errorf("viewer = %+v, want %+v", got, viewer)
	}
}
