package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/tabistory/internal/model"
)

// PostgresSessionRepoがSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Sessionモデルのフィールドが正しく構築されることを検証
func TestPostgresSessionRepo_SessionModel_Fields(t *testing.T) {
	now := time.Now()
	session := &model.Session{
		ID:        "session-id-1",
		UserID:    "user-id-1",
		Username:  "ひとし",
		AvatarURL: "https://example.com/avatar.png",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}

	if session.UserID != "user-id-1" {
		t.Errorf("session.UserID = %q, want %q", session.UserID, "user-id-1")
	}
	if session.Username != "ひとし" {
		t.Errorf("session.Username = %q, want %q", session.Username, "ひとし")
	}
}
