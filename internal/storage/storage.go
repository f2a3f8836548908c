// Package storage はメディアオブジェクトの保存・削除・URL解決を提供する。
// オブジェクトストレージ本体は外部コラボレータであり、ここではその
// 境界契約（put / delete / resolve）と開発・検証用のディスク実装を定義する。
package storage

import (
	"context"
	"io"
)

// ObjectStore はメディアオブジェクトストレージの境界インターフェース。
type ObjectStore interface {
	// Put はpathにオブジェクトを保存し、削除時に使用するハンドル（ref）を返す。
	Put(ctx context.Context, path string, r io.Reader) (string, error)

	// Delete はrefが指すオブジェクトを削除する。
	// 呼び出し側はベストエフォートとして扱い、失敗をログに留めてよい。
	Delete(ctx context.Context, ref string) error

	// Resolve はrefから配信用URLを生成する。
	Resolve(ref string) string
}
