package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore はローカルディスクを使用したObjectStore実装。
// refは保存ルートからの相対パスで、ResolveはそれをbaseURLに連結して
// 配信用URLを生成する。
type DiskStore struct {
	root    string // 保存ルートディレクトリ
	baseURL string // 配信URLのプレフィックス（末尾スラッシュなし）
}

// NewDiskStore はDiskStoreを生成する。ルートディレクトリが
// 存在しない場合は作成する。
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("メディアルートディレクトリの作成に失敗しました: %w", err)
	}

	return &DiskStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put はpathにオブジェクトを保存し、refとして相対パスを返す。
// 一時ファイルへの書き込み後にアトミックなrenameで確定する。
// 書き込み途中の失敗では一時ファイルを削除し、部分オブジェクトを残さない。
func (s *DiskStore) Put(ctx context.Context, path string, r io.Reader) (string, error) {
	cleaned, err := s.safePath(path)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.root, cleaned)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("メディアデータの書き込みに失敗しました: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("メディアファイルのfsyncに失敗しました: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("メディアファイルのクローズに失敗しました: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("メディアファイルの確定に失敗しました: %w", err)
	}

	return cleaned, nil
}

// Delete はrefが指すオブジェクトを削除する。
// 既に存在しない場合はエラーにしない（直前削除との競合は無害なレース）。
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	cleaned, err := s.safePath(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, cleaned)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("メディアファイルの削除に失敗しました: %w", err)
	}
	return nil
}

// Resolve はrefから配信用URLを生成する。
func (s *DiskStore) Resolve(ref string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(ref), "/")
}

// Root はファイル配信ハンドラに渡す保存ルートディレクトリを返す。
func (s *DiskStore) Root() string {
	return s.root
}

// safePath はパスを正規化し、保存ルート外への脱出を拒否する。
func (s *DiskStore) safePath(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == "." || cleaned == string(filepath.Separator) ||
		strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("不正なメディアパスです: %s", path)
	}
	return cleaned, nil
}

// compile-time interface check
var _ ObjectStore = (*DiskStore)(nil)
