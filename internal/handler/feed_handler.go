package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/tabistory/internal/middleware"
	"github.com/hitoshi/tabistory/internal/model"
)

// FeedAssemblerInterface はフィードハンドラーが必要とする組み立てインターフェース。
type FeedAssemblerInterface interface {
	// BuildFeed は閲覧者向けのフィードを組み立てる。
	BuildFeed(ctx context.Context, viewer model.Viewer, now time.Time) ([]model.StoryUser, error)
}

// FeedHandler はストーリーフィードのHTTPハンドラー。
type FeedHandler struct {
	assembler FeedAssemblerInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(assembler FeedAssemblerInterface) *FeedHandler {
	return &FeedHandler{assembler: assembler}
}

// storyUserResponse はフィード内の投稿者単位のAPIレスポンス。
type storyUserResponse struct {
	UserID    string          `json:"user_id"`
	Username  string          `json:"username"`
	Avatar    string          `json:"avatar,omitempty"`
	HasUnseen bool            `json:"has_unseen"`
	Stories   []storyResponse `json:"stories"`
}

// feedResponse はフィード全体のAPIレスポンス。
type feedResponse struct {
	Users []storyUserResponse `json:"users"`
}

// GetFeed は閲覧者向けのストーリーフィードを返す。
// GET /api/stories/feed
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewer, err := middleware.ViewerFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	users, err := h.assembler.BuildFeed(r.Context(), viewer, time.Now().UTC())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := feedResponse{Users: make([]storyUserResponse, 0, len(users))}
	for _, u := range users {
		stories := make([]storyResponse, 0, len(u.Stories))
		for i := range u.Stories {
			stories = append(stories, toStoryResponse(&u.Stories[i]))
		}
		resp.Users = append(resp.Users, storyUserResponse{
			UserID:    u.UserID,
			Username:  u.Username,
			Avatar:    u.Avatar,
			HasUnseen: u.HasUnseen,
			Stories:   stories,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
