package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// CaptionSanitizerService はキャプションのサニタイズ機能のインターフェースを定義する。
// ストーリー保存前に使用される。
type CaptionSanitizerService interface {
	// Sanitize はキャプションから全てのHTMLタグを除去し、
	// 前後の空白を取り除いたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// captionSanitizer はCaptionSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type captionSanitizer struct {
	policy *bluemonday.Policy
}

// NewCaptionSanitizer はCaptionSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）により全てのHTMLタグとon*イベント属性が除去される。
func NewCaptionSanitizer() *captionSanitizer {
	return &captionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はキャプションをプレーンテキストにサニタイズする。
// bluemondayはタグ除去後にエンティティをエスケープするため、
// 表示用の生テキストに戻してから返す。
func (s *captionSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
