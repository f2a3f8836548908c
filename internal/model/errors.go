package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, story, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeStoryNotFound    = "STORY_NOT_FOUND"
	ErrCodeInvalidMediaType = "INVALID_MEDIA_TYPE"
	ErrCodeCaptionTooLong   = "CAPTION_TOO_LONG"
	ErrCodeUploadFailed     = "UPLOAD_FAILED"
	ErrCodeNotStoryAuthor   = "NOT_STORY_AUTHOR"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeImportFailed     = "IMPORT_FAILED"
	ErrCodeEmptyMedia       = "EMPTY_MEDIA"
)

// NewStoryNotFoundError はストーリー未検出エラーを生成する。
func NewStoryNotFoundError(storyID string) *APIError {
	return &APIError{
		Code:     ErrCodeStoryNotFound,
		Message:  fmt.Sprintf("指定されたストーリーが見つかりません: %s", storyID),
		Category: "story",
		Action:   "ストーリーIDを確認してください。既に失効または削除されている可能性があります。",
	}
}

// NewInvalidMediaTypeError は無効なメディア種別エラーを生成する。
func NewInvalidMediaTypeError(mediaType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMediaType,
		Message:  fmt.Sprintf("無効なメディア種別です: %s", mediaType),
		Category: "validation",
		Action:   "メディア種別には image、video、text のいずれかを指定してください。",
	}
}

// NewCaptionTooLongError はキャプション長超過エラーを生成する。
func NewCaptionTooLongError(length, max int) *APIError {
	return &APIError{
		Code:     ErrCodeCaptionTooLong,
		Message:  fmt.Sprintf("キャプションが長すぎます: %d文字（上限%d文字）", length, max),
		Category: "validation",
		Action:   "キャプションを短くしてから再度投稿してください。",
	}
}

// NewUploadFailedError はアップロード失敗エラーを生成する。
// アップロードはユーザーが直接開始する書き込みのため、失敗はUIに伝搬させる。
func NewUploadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("ストーリーの投稿に失敗しました: %s", reason),
		Category: "story",
		Action:   "しばらく待ってから再度投稿してください。",
	}
}

// NewNotStoryAuthorError は投稿者以外による削除要求エラーを生成する。
func NewNotStoryAuthorError() *APIError {
	return &APIError{
		Code:     ErrCodeNotStoryAuthor,
		Message:  "このストーリーを削除する権限がありません。",
		Category: "auth",
		Action:   "自分が投稿したストーリーのみ削除できます。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewImportFailedError はリモートメディア取り込み失敗エラーを生成する。
func NewImportFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImportFailed,
		Message:  fmt.Sprintf("メディアの取り込みに失敗しました: %s", reason),
		Category: "story",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewEmptyMediaError はメディア未指定エラーを生成する。
func NewEmptyMediaError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMedia,
		Message:  "メディアデータが指定されていません。",
		Category: "validation",
		Action:   "画像または動画ファイルを添付してください。",
	}
}
