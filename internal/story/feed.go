package story

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
	"github.com/hitoshi/tabistory/internal/profile"
	"github.com/hitoshi/tabistory/internal/repository"
)

// fallbackUsername はプロフィールを解決できなかった投稿者の表示名。
// プロフィールストアの障害でフィード全体を失敗させないためのフォールバック。
const fallbackUsername = "User"

// FeedAssembler は閲覧者ごとのストーリーフィードを組み立てる。
// 有効なストーリーの取得、投稿者ごとのグルーピング、閲覧状態の付与、
// プロフィール解決、並び順の決定までを1回のパスで行う。
type FeedAssembler struct {
	stories  repository.StoryRepository
	views    repository.ViewRepository
	resolver *profile.Resolver
	logger   *slog.Logger
	metrics  MetricsRecorder // nilの場合は計測しない
	pageSize int
}

// NewFeedAssembler はFeedAssemblerの新しいインスタンスを生成する。
// pageSizeが0以下の場合はデフォルト値50を使用する。
func NewFeedAssembler(
	stories repository.StoryRepository,
	views repository.ViewRepository,
	resolver *profile.Resolver,
	logger *slog.Logger,
	metrics MetricsRecorder,
	pageSize int,
) *FeedAssembler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &FeedAssembler{
		stories:  stories,
		views:    views,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		pageSize: pageSize,
	}
}

// BuildFeed は閲覧者向けのフィードを組み立てる。
// 結果は投稿者単位のリストで、並び順は以下の通り:
//  1. 閲覧者自身（閲覧状態に関係なく常に先頭）
//  2. 未閲覧ストーリーを持つ投稿者
//  3. 全て閲覧済みの投稿者
//
// 2と3の中では最新ストーリーが新しい投稿者が先。各投稿者内の
// ストーリーはcreated_at昇順（再生順）で並ぶ。
// 閲覧者自身の表示名・アバターはセッション由来のviewerから取得し、
// プロフィールストアには問い合わせない。
func (a *FeedAssembler) BuildFeed(ctx context.Context, viewer model.Viewer, now time.Time) ([]model.StoryUser, error) {
	start := time.Now()

	// 有効なストーリーを新しい順にpageSize件まで取得する。
	// 上限を超える古い有効ストーリーは落ちるが、フィードは網羅性より
	// 予測可能なレイテンシを優先する。
	active, err := a.stories.ListActive(ctx, now, a.pageSize)
	if err != nil {
		return nil, fmt.Errorf("有効ストーリーの取得に失敗しました: %w", err)
	}
	if len(active) == 0 {
		return []model.StoryUser{}, nil
	}

	// 投稿者ごとにグルーピングする。
	groups := make(map[string][]model.Story)
	var authorOrder []string
	for _, s := range active {
		if _, ok := groups[s.AuthorID]; !ok {
			authorOrder = append(authorOrder, s.AuthorID)
		}
		groups[s.AuthorID] = append(groups[s.AuthorID], s)
	}

	// 閲覧済みストーリーID集合を取得する。有効なストーリーは全て
	// 直近24時間以内の投稿なので、それより古い閲覧イベントは関係ない。
	// 取得に失敗した場合は全て未閲覧として扱い、フィード自体は返す。
	viewed, err := a.views.ListViewedStoryIDs(ctx, viewer.ID, now.Add(-model.StoryTTL))
	if err != nil {
		a.logger.Warn("閲覧済みストーリーの取得に失敗しました。全て未閲覧として扱います",
			slog.String("viewer_id", viewer.ID),
			slog.String("error", err.Error()),
		)
		viewed = map[string]struct{}{}
	}

	// 自分以外の投稿者のプロフィールを解決する。キャッシュミスした分のみ
	// 一括リフレッシュし、失敗した投稿者はフォールバック表示になる。
	var otherAuthors []string
	for _, id := range authorOrder {
		if id != viewer.ID {
			otherAuthors = append(otherAuthors, id)
		}
	}
	if missing := a.resolver.MissingIDs(otherAuthors); len(missing) > 0 {
		a.resolver.RefreshBatch(ctx, missing)
	}

	users := make([]model.StoryUser, 0, len(authorOrder))
	for _, authorID := range authorOrder {
		stories := groups[authorID]
		sort.Slice(stories, func(i, j int) bool {
			return stories[i].CreatedAt.Before(stories[j].CreatedAt)
		})

		// 自分のストーリーは常に閲覧済み扱い（投稿者は自分の投稿を暗黙に見ている）
		hasUnseen := false
		if authorID != viewer.ID {
			for _, s := range stories {
				if _, seen := viewed[s.ID]; !seen {
					hasUnseen = true
					break
				}
			}
		}

		user := model.StoryUser{
			UserID:    authorID,
			Stories:   stories,
			HasUnseen: hasUnseen,
		}
		if authorID == viewer.ID {
			user.Username = viewer.Username
			user.Avatar = viewer.AvatarURL
		} else if entry, ok := a.resolver.Cache().Get(authorID); ok {
			user.Username = entry.Profile.Username
			user.Avatar = entry.Profile.AvatarURL
		} else {
			user.Username = fallbackUsername
			user.Avatar = ""
		}
		users = append(users, user)
	}

	sort.SliceStable(users, func(i, j int) bool {
		ui, uj := users[i], users[j]
		// 自分は閲覧状態に関係なく常に先頭
		if ui.UserID == viewer.ID {
			return true
		}
		if uj.UserID == viewer.ID {
			return false
		}
		// 未閲覧ありが先
		if ui.HasUnseen != uj.HasUnseen {
			return ui.HasUnseen
		}
		// 同一グループ内では最新ストーリーが新しい投稿者が先
		return latestCreatedAt(ui.Stories).After(latestCreatedAt(uj.Stories))
	})

	if a.metrics != nil {
		a.metrics.RecordFeedAssembly(time.Since(start), len(users))
	}
	return users, nil
}

// latestCreatedAt は投稿者内で最も新しいストーリーのcreated_atを返す。
// Storiesはcreated_at昇順に整列済み。
func latestCreatedAt(stories []model.Story) time.Time {
	if len(stories) == 0 {
		return time.Time{}
	}
	return stories[len(stories)-1].CreatedAt
}
