package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
	"github.com/hitoshi/tabistory/internal/repository"
)

// mockProfileRepository はテスト用のProfileRepositoryモック。
type mockProfileRepository struct {
	mu          sync.Mutex
	chunks      [][]string
	findByIDsFn func(ctx context.Context, userIDs []string) ([]model.Profile, error)
}

var _ repository.ProfileRepository = (*mockProfileRepository)(nil)

func (m *mockProfileRepository) FindByIDs(ctx context.Context, userIDs []string) ([]model.Profile, error) {
	m.mu.Lock()
	m.chunks = append(m.chunks, userIDs)
	m.mu.Unlock()
	if m.findByIDsFn != nil {
		return m.findByIDsFn(ctx, userIDs)
	}
	profiles := make([]model.Profile, 0, len(userIDs))
	for _, id := range userIDs {
		profiles = append(profiles, model.Profile{UserID: id, Username: "name-" + id})
	}
	return profiles, nil
}

type mockChunkFailureRecorder struct {
	mu    sync.Mutex
	count int
}

func (m *mockChunkFailureRecorder) RecordProfileChunkFailure() {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRefreshBatch_SplitsIntoChunks は23件のIDが10件・10件・3件の
// 3チャンクに分割されることを検証する。
func TestRefreshBatch_SplitsIntoChunks(t *testing.T) {
	repo := &mockProfileRepository{}
	resolver := NewResolver(NewCache(100, time.Minute), repo, testLogger(), nil)

	ids := make([]string, 23)
	for i := range ids {
		ids[i] = fmt.Sprintf("user%02d", i)
	}

	resolver.RefreshBatch(context.Background(), ids)

	if len(repo.chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(repo.chunks))
	}

	sizes := map[int]int{}
	for _, c := range repo.chunks {
		if len(c) > 10 {
			t.Errorf("chunk size = %d, exceeds 10", len(c))
		}
		sizes[len(c)]++
	}
	if sizes[10] != 2 || sizes[3] != 1 {
		t.Errorf("chunk sizes = %v, want two of 10 and one of 3", sizes)
	}
}

// TestRefreshBatch_PopulatesCache は取得したプロフィールが全てキャッシュに
// 書き込まれることを検証する。
func TestRefreshBatch_PopulatesCache(t *testing.T) {
	repo := &mockProfileRepository{}
	resolver := NewResolver(NewCache(100, time.Minute), repo, testLogger(), nil)

	resolver.RefreshBatch(context.Background(), []string{"user1", "user2", "user3"})

	for _, id := range []string{"user1", "user2", "user3"} {
		entry, ok := resolver.Cache().Get(id)
		if !ok {
			t.Errorf("expected cache hit for %q", id)
			continue
		}
		if entry.Profile.Username != "name-"+id {
			t.Errorf("Username = %q, want %q", entry.Profile.Username, "name-"+id)
		}
	}
}

// TestRefreshBatch_FailedChunkIsSkipped は一部チャンクの失敗が他チャンクの
// 結果に影響しないことを検証する。失敗したチャンクのユーザーはキャッシュに
// 書き込まれない。
func TestRefreshBatch_FailedChunkIsSkipped(t *testing.T) {
	repo := &mockProfileRepository{
		findByIDsFn: func(ctx context.Context, userIDs []string) ([]model.Profile, error) {
			for _, id := range userIDs {
				if id == "user00" {
					return nil, errors.New("接続がタイムアウトしました")
				}
			}
			profiles := make([]model.Profile, 0, len(userIDs))
			for _, id := range userIDs {
				profiles = append(profiles, model.Profile{UserID: id, Username: "name-" + id})
			}
			return profiles, nil
		},
	}
	recorder := &mockChunkFailureRecorder{}
	resolver := NewResolver(NewCache(100, time.Minute), repo, testLogger(), recorder)

	ids := make([]string, 15)
	for i := range ids {
		ids[i] = fmt.Sprintf("user%02d", i)
	}

	resolver.RefreshBatch(context.Background(), ids)

	// 先頭チャンク（user00〜user09）は失敗、残りは成功
	if _, ok := resolver.Cache().Get("user00"); ok {
		t.Error("expected cache miss for user in failed chunk")
	}
	if _, ok := resolver.Cache().Get("user12"); !ok {
		t.Error("expected cache hit for user in successful chunk")
	}
	if recorder.count != 1 {
		t.Errorf("chunk failure count = %d, want 1", recorder.count)
	}
}

// TestRefreshBatch_EmptyInput は空のID集合で問い合わせが発生しないことを検証する。
func TestRefreshBatch_EmptyInput(t *testing.T) {
	repo := &mockProfileRepository{}
	resolver := NewResolver(NewCache(100, time.Minute), repo, testLogger(), nil)

	resolver.RefreshBatch(context.Background(), nil)

	if len(repo.chunks) != 0 {
		t.Errorf("chunk count = %d, want 0", len(repo.chunks))
	}
}

// TestMissingIDs はキャッシュにないIDのみが入力順で返ることを検証する。
func TestMissingIDs(t *testing.T) {
	resolver := NewResolver(NewCache(100, time.Minute), &mockProfileRepository{}, testLogger(), nil)

	resolver.Cache().Set(model.Profile{UserID: "user2"}, time.Now().UTC())

	missing := resolver.MissingIDs([]string{"user1", "user2", "user3"})
	if len(missing) != 2 || missing[0] != "user1" || missing[1] != "user3" {
		t.Errorf("MissingIDs = %v, want [user1 user3]", missing)
	}
}
