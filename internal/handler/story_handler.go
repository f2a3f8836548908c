// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tabistory/internal/middleware"
	"github.com/hitoshi/tabistory/internal/model"
	"github.com/hitoshi/tabistory/internal/story"
)

// StoryServiceInterface はストーリーハンドラーが必要とするサービスインターフェース。
type StoryServiceInterface interface {
	// Upload はストーリーを投稿する。
	Upload(ctx context.Context, authorID string, in story.UploadInput) (*model.Story, error)
	// Delete はストーリーを削除する。投稿者本人のみが削除できる。
	Delete(ctx context.Context, storyID, requesterID string) error
	// RecordView は閲覧イベントを冪等に記録する。失敗は伝搬しない。
	RecordView(ctx context.Context, storyID, viewerID string, now time.Time)
}

// ImporterInterface はリモートメディア取り込みのインターフェース。
type ImporterInterface interface {
	// Fetch は指定URLからメディアを取り込む。
	Fetch(ctx context.Context, rawURL string) (*story.ImportedMedia, error)
}

// StoryHandlerConfig はストーリーハンドラーの設定。
type StoryHandlerConfig struct {
	UploadMaxSize int64 // multipartアップロードの最大サイズ（バイト）
}

// StoryHandler はストーリー投稿・閲覧記録・削除のHTTPハンドラー。
type StoryHandler struct {
	service  StoryServiceInterface
	importer ImporterInterface
	config   StoryHandlerConfig
}

// NewStoryHandler はStoryHandlerを生成する。
func NewStoryHandler(service StoryServiceInterface, importer ImporterInterface, config StoryHandlerConfig) *StoryHandler {
	if config.UploadMaxSize <= 0 {
		config.UploadMaxSize = 10 * 1024 * 1024
	}
	return &StoryHandler{
		service:  service,
		importer: importer,
		config:   config,
	}
}

// importStoryRequest はリモートメディア取り込みリクエストのボディ。
type importStoryRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// storyResponse はストーリーのAPIレスポンス。
type storyResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// UploadStory はストーリーの投稿を処理する。
// POST /api/stories （multipart/form-data: media_type, caption, media）
func (h *StoryHandler) UploadStory(w http.ResponseWriter, r *http.Request) {
	viewer, err := middleware.ViewerFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.UploadMaxSize)
	if err := r.ParseMultipartForm(h.config.UploadMaxSize); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "multipartフォームの解析に失敗しました。サイズ上限を超えている可能性があります。",
			Category: "validation",
			Action:   "ファイルサイズを確認して再度投稿してください。",
		})
		return
	}

	input := story.UploadInput{
		MediaType: model.MediaType(r.FormValue("media_type")),
		Caption:   r.FormValue("caption"),
	}

	// テキストストーリーはメディアファイルを持たない
	if input.MediaType != model.MediaTypeText {
		file, _, err := r.FormFile("media")
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewEmptyMediaError())
			return
		}
		defer file.Close()
		input.Media = file
	}

	created, err := h.service.Upload(r.Context(), viewer.ID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toStoryResponse(created))
}

// ImportStory はリモートURLからのメディア取り込みと投稿を処理する。
// POST /api/stories/import
func (h *StoryHandler) ImportStory(w http.ResponseWriter, r *http.Request) {
	viewer, err := middleware.ViewerFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req importStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	media, err := h.importer.Fetch(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	created, err := h.service.Upload(r.Context(), viewer.ID, story.UploadInput{
		MediaType: media.MediaType,
		Caption:   req.Caption,
		Media:     media.Reader(),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toStoryResponse(created))
}

// RecordView は閲覧イベントの記録を処理する。
// POST /api/stories/:id/view
// 閲覧記録は冪等なベストエフォート書き込みであり、常に204を返す。
func (h *StoryHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	viewer, err := middleware.ViewerFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	storyID := chi.URLParam(r, "id")
	h.service.RecordView(r.Context(), storyID, viewer.ID, time.Now().UTC())

	w.WriteHeader(http.StatusNoContent)
}

// DeleteStory はストーリーの削除を処理する。
// DELETE /api/stories/:id
func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	viewer, err := middleware.ViewerFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	storyID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), storyID, viewer.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toStoryResponse はmodel.StoryからAPIレスポンスに変換する。
func toStoryResponse(s *model.Story) storyResponse {
	return storyResponse{
		ID:        s.ID,
		AuthorID:  s.AuthorID,
		MediaURL:  s.MediaURL,
		MediaType: string(s.MediaType),
		Caption:   s.Caption,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は認証エラーの統一レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeStoryNotFound:
		return http.StatusNotFound
	case model.ErrCodeNotStoryAuthor:
		return http.StatusForbidden
	case model.ErrCodeInvalidMediaType, model.ErrCodeCaptionTooLong, model.ErrCodeEmptyMedia, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeImportFailed:
		return http.StatusBadGateway
	case model.ErrCodeUploadFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
