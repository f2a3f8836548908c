package security

import "testing"

// TestCaptionSanitizer_StripsAllTags は全てのHTMLタグが除去されることを検証する。
func TestCaptionSanitizer_StripsAllTags(t *testing.T) {
	s := NewCaptionSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "script tag",
			input: `京都の夕焼け<script>alert('xss')</script>`,
			want:  "京都の夕焼け",
		},
		{
			name:  "bold tag",
			input: "<b>最高</b>の旅でした",
			want:  "最高の旅でした",
		},
		{
			name:  "anchor tag",
			input: `詳細は<a href="https://evil.example">こちら</a>`,
			want:  "詳細はこちら",
		},
		{
			name:  "img onerror",
			input: `<img src=x onerror=alert(1)>絶景`,
			want:  "絶景",
		},
		{
			name:  "plain text unchanged",
			input: "雨上がりの嵐山",
			want:  "雨上がりの嵐山",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestCaptionSanitizer_TrimsWhitespace は前後の空白が除去されることを検証する。
func TestCaptionSanitizer_TrimsWhitespace(t *testing.T) {
	s := NewCaptionSanitizer()

	if got := s.Sanitize("  旅の記録  \n"); got != "旅の記録" {
		t.Errorf("Sanitize = %q, want %q", got, "旅の記録")
	}
}

// TestCaptionSanitizer_EmptyInput は空文字列の入力に空文字列を返すことを検証する。
func TestCaptionSanitizer_EmptyInput(t *testing.T) {
	s := NewCaptionSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

// TestCaptionSanitizer_IsIdempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestCaptionSanitizer_IsIdempotent(t *testing.T) {
	s := NewCaptionSanitizer()

	input := `<b>絶景</b>スポット & 温泉`
	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize is not idempotent: first=%q second=%q", first, second)
	}
}
