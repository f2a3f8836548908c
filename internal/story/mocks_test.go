package story

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
	"github.com/hitoshi/tabistory/internal/repository"
	"github.com/hitoshi/tabistory/internal/security"
	"github.com/hitoshi/tabistory/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStoryRepository はテスト用のStoryRepositoryモック。
type mockStoryRepository struct {
	createFn     func(ctx context.Context, story *model.Story) error
	findByIDFn   func(ctx context.Context, id string) (*model.Story, error)
	listActiveFn func(ctx context.Context, now time.Time, limit int) ([]model.Story, error)
	deleteFn     func(ctx context.Context, id string) error

	created []model.Story
	deleted []string
}

var _ repository.StoryRepository = (*mockStoryRepository)(nil)

func (m *mockStoryRepository) Create(ctx context.Context, story *model.Story) error {
	if m.createFn != nil {
		return m.createFn(ctx, story)
	}
	m.created = append(m.created, *story)
	return nil
}

func (m *mockStoryRepository) FindByID(ctx context.Context, id string) (*model.Story, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStoryRepository) ListActive(ctx context.Context, now time.Time, limit int) ([]model.Story, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, now, limit)
	}
	return nil, nil
}

func (m *mockStoryRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// mockViewRepository はテスト用のViewRepositoryモック。
type mockViewRepository struct {
	upsertFn            func(ctx context.Context, event *model.ViewEvent) error
	listViewedStoryIDFn func(ctx context.Context, viewerID string, since time.Time) (map[string]struct{}, error)

	upserted []model.ViewEvent
}

var _ repository.ViewRepository = (*mockViewRepository)(nil)

func (m *mockViewRepository) Upsert(ctx context.Context, event *model.ViewEvent) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, event)
	}
	m.upserted = append(m.upserted, *event)
	return nil
}

func (m *mockViewRepository) ListViewedStoryIDs(ctx context.Context, viewerID string, since time.Time) (map[string]struct{}, error) {
	if m.listViewedStoryIDFn != nil {
		return m.listViewedStoryIDFn(ctx, viewerID, since)
	}
	return map[string]struct{}{}, nil
}

// mockProfileRepository はテスト用のProfileRepositoryモック。
type mockProfileRepository struct {
	profiles map[string]model.Profile
	err      error
}

var _ repository.ProfileRepository = (*mockProfileRepository)(nil)

func (m *mockProfileRepository) FindByIDs(ctx context.Context, userIDs []string) ([]model.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Profile
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// mockObjectStore はテスト用のObjectStoreモック。
type mockObjectStore struct {
	mu       sync.Mutex
	putFn    func(ctx context.Context, path string, r io.Reader) (string, error)
	deleteFn func(ctx context.Context, ref string) error

	puts    map[string][]byte
	deletes []string
}

var _ storage.ObjectStore = (*mockObjectStore)(nil)

func (m *mockObjectStore) Put(ctx context.Context, path string, r io.Reader) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, path, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.puts[path] = buf.Bytes()
	return path, nil
}

func (m *mockObjectStore) Delete(ctx context.Context, ref string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, ref)
	return nil
}

func (m *mockObjectStore) Resolve(ref string) string {
	return "https://cdn.example.com/media/" + ref
}

// mockSSRFGuard はテスト用のSSRFGuardServiceモック。
// httptestサーバーはループバックで待ち受けるため、実際のSSRF防止付き
// クライアントでは接続できない。取り込みロジックのテストでは素の
// http.Clientを返すモックで代替する。
type mockSSRFGuard struct {
	validateURLFn func(rawURL string) error
}

var _ security.SSRFGuardService = (*mockSSRFGuard)(nil)

func (m *mockSSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockSSRFGuard) ValidateURL(rawURL string) error {
	if m.validateURLFn != nil {
		return m.validateURLFn(rawURL)
	}
	return nil
}

// mockMetrics はテスト用のMetricsRecorderモック。
type mockMetrics struct {
	mu         sync.Mutex
	uploads    []string
	views      int
	deletions  int
	assemblies int
}

var _ MetricsRecorder = (*mockMetrics)(nil)

func (m *mockMetrics) RecordStoryUpload(mediaType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, mediaType)
}

func (m *mockMetrics) RecordStoryView() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views++
}

func (m *mockMetrics) RecordStoryDeletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions++
}

func (m *mockMetrics) RecordFeedAssembly(duration time.Duration, userCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assemblies++
}
