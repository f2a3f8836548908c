package story

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/tabistory/internal/model"
	"github.com/hitoshi/tabistory/internal/security"
)

// ImportedMedia はリモートURLから取り込んだメディアを表す。
type ImportedMedia struct {
	Data        []byte
	MediaType   model.MediaType
	ContentType string
	SourceURL   string // 実際にメディアを取得したURL。og:image解決後のURLになることがある
}

// Reader は取り込んだメディアデータのReaderを返す。
func (m *ImportedMedia) Reader() io.Reader {
	return bytes.NewReader(m.Data)
}

// Importer はリモートURLからのメディア取り込みを行う。
// 取得はSSRF防止付きHTTPクライアントで行い、HTMLページが指定された
// 場合はog:imageメタタグから代表画像を解決する。
type Importer struct {
	guard   security.SSRFGuardService
	client  *http.Client
	maxSize int64
	logger  *slog.Logger
}

// NewImporter はImporterの新しいインスタンスを生成する。
// maxSizeが0以下の場合はデフォルト値5MiBを使用する。
func NewImporter(guard security.SSRFGuardService, timeout time.Duration, maxSize int64, logger *slog.Logger) *Importer {
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}
	return &Importer{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		maxSize: maxSize,
		logger:  logger,
	}
}

// Fetch は指定URLからメディアを取り込む。
// 画像・動画URLはそのまま取得し、HTMLページの場合はog:imageメタタグから
// 代表画像URLを解決して再取得する。
func (im *Importer) Fetch(ctx context.Context, rawURL string) (*ImportedMedia, error) {
	if err := im.guard.ValidateURL(rawURL); err != nil {
		if strings.Contains(err.Error(), "blocked") {
			return nil, model.NewSSRFBlockedError()
		}
		return nil, model.NewInvalidURLError(err.Error())
	}

	body, contentType, err := im.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(contentType, "image/"):
		return &ImportedMedia{Data: body, MediaType: model.MediaTypeImage, ContentType: contentType, SourceURL: rawURL}, nil
	case strings.HasPrefix(contentType, "video/"):
		return &ImportedMedia{Data: body, MediaType: model.MediaTypeVideo, ContentType: contentType, SourceURL: rawURL}, nil
	case strings.HasPrefix(contentType, "text/html"):
		return im.fetchOGImage(ctx, rawURL, body)
	default:
		return nil, model.NewImportFailedError(fmt.Sprintf("対応していないContent-Typeです: %s", contentType))
	}
}

// fetchOGImage はHTMLページのog:imageメタタグから代表画像を解決して取得する。
func (im *Importer) fetchOGImage(ctx context.Context, pageURL string, page []byte) (*ImportedMedia, error) {
	imageURL := extractOGImage(page)
	if imageURL == "" {
		return nil, model.NewImportFailedError("ページにog:imageが見つかりません")
	}

	// og:imageが相対URLの場合はページURLを基準に解決する
	resolved, err := resolveAgainst(pageURL, imageURL)
	if err != nil {
		return nil, model.NewImportFailedError(fmt.Sprintf("og:imageのURLを解決できません: %s", imageURL))
	}

	// 解決後のURLも再検証する。ページ内のog:imageは攻撃者が制御できるため、
	// ページURLが安全でもog:imageが内部アドレスを指す可能性がある。
	if err := im.guard.ValidateURL(resolved); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	im.logger.Debug("og:imageを解決しました",
		slog.String("page_url", pageURL),
		slog.String("image_url", resolved),
	)

	body, contentType, err := im.download(ctx, resolved)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, model.NewImportFailedError(fmt.Sprintf("og:imageの取得結果が画像ではありません: %s", contentType))
	}
	return &ImportedMedia{Data: body, MediaType: model.MediaTypeImage, ContentType: contentType, SourceURL: resolved}, nil
}

// download は指定URLの本文をサイズ上限付きで取得する。
func (im *Importer) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "tabistory-importer/1.0")

	resp, err := im.client.Do(req)
	if err != nil {
		im.logger.Warn("リモートメディアの取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, "", model.NewImportFailedError("URLへのアクセスに失敗しました")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", model.NewImportFailedError(fmt.Sprintf("HTTPステータス %d が返されました", resp.StatusCode))
	}

	// 上限+1バイト読むことで超過を検知する
	body, err := io.ReadAll(io.LimitReader(resp.Body, im.maxSize+1))
	if err != nil {
		return nil, "", model.NewImportFailedError("レスポンスの読み取りに失敗しました")
	}
	if int64(len(body)) > im.maxSize {
		return nil, "", model.NewImportFailedError(fmt.Sprintf("サイズ上限（%dバイト）を超えています", im.maxSize))
	}
	if len(body) == 0 {
		return nil, "", model.NewImportFailedError("レスポンスが空です")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

// extractOGImage はHTMLからog:imageメタタグのcontent属性を抽出する。
// 見つからない場合は空文字列を返す。
func extractOGImage(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	var found string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "property", "name":
					property = strings.ToLower(attr.Val)
				case "content":
					content = attr.Val
				}
			}
			if property == "og:image" && content != "" {
				found = content
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

// resolveAgainst はbase URLを基準にrefを絶対URLへ解決する。
func resolveAgainst(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
