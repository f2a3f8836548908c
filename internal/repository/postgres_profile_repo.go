package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/tabistory/internal/model"
)

// maxProfilesPerQuery は1回のid-in-set検索で渡せるIDの上限。
// バックエンドのクエリ引数数制約であり、超過分は呼び出し側で
// チャンクに分割すること。
const maxProfilesPerQuery = 10

// PostgresProfileRepo はPostgreSQLを使用したプロフィールストアの読み取りリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByIDs は指定ID集合のプロフィールを一括取得する。
// IDがmaxProfilesPerQueryを超える場合はエラーを返す（チャンク分割は呼び出し側の責務）。
// 存在しないIDは結果から欠落し、エラーにはならない。
func (r *PostgresProfileRepo) FindByIDs(ctx context.Context, userIDs []string) ([]model.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if len(userIDs) > maxProfilesPerQuery {
		return nil, fmt.Errorf("IDの数が上限を超えています: %d > %d", len(userIDs), maxProfilesPerQuery)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, username, avatar_url FROM profiles
		 WHERE user_id = ANY($1)`,
		pq.Array(userIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの一括取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.UserID, &p.Username, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("プロフィール行の読み取りに失敗しました: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロフィール一覧の走査に失敗しました: %w", err)
	}

	return profiles, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
