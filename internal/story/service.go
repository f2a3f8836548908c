// Package story はストーリーのライフサイクル（投稿・閲覧記録・削除）と
// フィード組み立てを提供する。
package story

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/tabistory/internal/model"
	"github.com/hitoshi/tabistory/internal/repository"
	"github.com/hitoshi/tabistory/internal/security"
	"github.com/hitoshi/tabistory/internal/storage"
)

// MetricsRecorder はストーリー操作の計測インターフェース。
type MetricsRecorder interface {
	RecordStoryUpload(mediaType string)
	RecordStoryView()
	RecordStoryDeletion()
	RecordFeedAssembly(duration time.Duration, userCount int)
}

// UploadInput はストーリー投稿の入力を表す。
// テキストストーリーの場合、Mediaはnilでよい。
type UploadInput struct {
	MediaType model.MediaType
	Caption   string
	Media     io.Reader
}

// Service はストーリーのライフサイクル操作を提供する。
type Service struct {
	stories   repository.StoryRepository
	views     repository.ViewRepository
	store     storage.ObjectStore
	sanitizer security.CaptionSanitizerService
	logger    *slog.Logger
	metrics   MetricsRecorder // nilの場合は計測しない

	captionMaxLength int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	stories repository.StoryRepository,
	views repository.ViewRepository,
	store storage.ObjectStore,
	sanitizer security.CaptionSanitizerService,
	logger *slog.Logger,
	metrics MetricsRecorder,
	captionMaxLength int,
) *Service {
	if captionMaxLength <= 0 {
		captionMaxLength = 500
	}
	return &Service{
		stories:          stories,
		views:            views,
		store:            store,
		sanitizer:        sanitizer,
		logger:           logger,
		metrics:          metrics,
		captionMaxLength: captionMaxLength,
	}
}

// Upload はストーリーを投稿する2段階書き込みを実行する。
// 第1段階でメディアオブジェクトを保存し、第2段階で台帳レコードを作成する。
// 第2段階が失敗した場合、第1段階のオブジェクトは孤児として残るが、
// 参照されないためユーザーには見えない。逆順（台帳が先）にすると
// メディアのないストーリーがフィードに露出するため、この順序は固定。
func (s *Service) Upload(ctx context.Context, authorID string, in UploadInput) (*model.Story, error) {
	if !model.ValidMediaType(in.MediaType) {
		return nil, model.NewInvalidMediaTypeError(string(in.MediaType))
	}

	caption := s.sanitizer.Sanitize(in.Caption)
	if n := utf8.RuneCountInString(caption); n > s.captionMaxLength {
		return nil, model.NewCaptionTooLongError(n, s.captionMaxLength)
	}

	now := time.Now().UTC()
	story := &model.Story{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		MediaType: in.MediaType,
		Caption:   caption,
		Status:    model.StoryStatusReady,
		CreatedAt: now,
		ExpiresAt: now.Add(model.StoryTTL),
	}

	// 第1段階: メディアオブジェクトの保存。テキストストーリーはメディアを持たない。
	if in.MediaType != model.MediaTypeText {
		if in.Media == nil {
			return nil, model.NewEmptyMediaError()
		}
		path := fmt.Sprintf("%s/%s", authorID, story.ID)
		ref, err := s.store.Put(ctx, path, in.Media)
		if err != nil {
			s.logger.Error("メディアオブジェクトの保存に失敗しました",
				slog.String("story_id", story.ID),
				slog.String("author_id", authorID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewUploadFailedError("メディアの保存に失敗しました")
		}
		story.MediaRef = ref
		story.MediaURL = s.store.Resolve(ref)
	}

	// 第2段階: 台帳レコードの作成
	if err := s.stories.Create(ctx, story); err != nil {
		s.logger.Error("ストーリーレコードの作成に失敗しました。メディアオブジェクトが孤児として残ります",
			slog.String("story_id", story.ID),
			slog.String("media_ref", story.MediaRef),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUploadFailedError("ストーリーの保存に失敗しました")
	}

	s.logger.Info("ストーリーを投稿しました",
		slog.String("story_id", story.ID),
		slog.String("author_id", authorID),
		slog.String("media_type", string(in.MediaType)),
	)
	if s.metrics != nil {
		s.metrics.RecordStoryUpload(string(in.MediaType))
	}
	return story, nil
}

// Delete はストーリーを削除する。投稿者本人のみが削除できる。
// 台帳レコードを先に削除し、その後メディアオブジェクトをベストエフォートで
// 削除する。逆順にすると、メディア削除後に台帳削除が失敗した場合に
// 壊れたストーリー（メディアのない参照）がフィードに残るため、この順序は固定。
func (s *Service) Delete(ctx context.Context, storyID, requesterID string) error {
	story, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		return fmt.Errorf("ストーリーの取得に失敗しました: %w", err)
	}
	if story == nil {
		return model.NewStoryNotFoundError(storyID)
	}
	if story.AuthorID != requesterID {
		return model.NewNotStoryAuthorError()
	}

	if err := s.stories.Delete(ctx, storyID); err != nil {
		return fmt.Errorf("ストーリーレコードの削除に失敗しました: %w", err)
	}

	// メディアオブジェクトの削除はベストエフォート。失敗しても台帳からは
	// 消えているため、残骸はユーザーに見えない。
	if story.MediaRef != "" {
		if err := s.store.Delete(ctx, story.MediaRef); err != nil {
			s.logger.Warn("メディアオブジェクトの削除に失敗しました",
				slog.String("story_id", storyID),
				slog.String("media_ref", story.MediaRef),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("ストーリーを削除しました",
		slog.String("story_id", storyID),
		slog.String("author_id", requesterID),
	)
	if s.metrics != nil {
		s.metrics.RecordStoryDeletion()
	}
	return nil
}

// RecordView は閲覧イベントを記録する。
// (ストーリー, 閲覧者)ペアごとに決定的IDでUPSERTするため冪等であり、
// 同じストーリーを何度開いても台帳は肥大化しない。
// 閲覧記録は視聴体験に付随する裏方の書き込みであり、失敗しても
// ストーリーの表示自体は成立するため、エラーは記録に留めて伝搬させない。
func (s *Service) RecordView(ctx context.Context, storyID, viewerID string, now time.Time) {
	event := &model.ViewEvent{
		ID:       model.ViewEventID(storyID, viewerID),
		StoryID:  storyID,
		ViewerID: viewerID,
		SeenAt:   now,
	}
	if err := s.views.Upsert(ctx, event); err != nil {
		s.logger.Warn("閲覧イベントの記録に失敗しました",
			slog.String("story_id", storyID),
			slog.String("viewer_id", viewerID),
			slog.String("error", err.Error()),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordStoryView()
	}
}
