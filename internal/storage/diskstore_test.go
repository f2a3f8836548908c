package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDiskStore_PutAndDelete は保存と削除のラウンドトリップを検証する。
func TestDiskStore_PutAndDelete(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}

	ref, err := store.Put(context.Background(), "user-1/story-1.jpg", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), ref))
	if err != nil {
		t.Fatalf("保存されたファイルの読み取りに失敗: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("stored content = %q, want %q", data, "image-bytes")
	}

	if err := store.Delete(context.Background(), ref); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Root(), ref)); !os.IsNotExist(err) {
		t.Error("expected file to be removed after Delete")
	}
}

// TestDiskStore_Delete_MissingObjectIsNotAnError は存在しないオブジェクトの
// 削除がエラーにならないことを検証する（直前削除との競合は無害なレース）。
func TestDiskStore_Delete_MissingObjectIsNotAnError(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}

	if err := store.Delete(context.Background(), "user-1/already-gone.jpg"); err != nil {
		t.Errorf("Delete of missing object returned error: %v", err)
	}
}

// TestDiskStore_Put_RejectsPathEscape は保存ルート外へ脱出するパスが
// 拒否されることを検証する。
func TestDiskStore_Put_RejectsPathEscape(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}

	for _, path := range []string{"../escape.jpg", "/etc/passwd", ".."} {
		if _, err := store.Put(context.Background(), path, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", path)
		}
	}
}

// TestDiskStore_Resolve はrefから配信用URLが生成されることを検証する。
func TestDiskStore_Resolve(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}

	got := store.Resolve("user-1/story-1.jpg")
	want := "http://localhost:8080/media/user-1/story-1.jpg"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

// TestDiskStore_Put_DoesNotLeaveTempFileOnSuccess は正常系で一時ファイルが
// 残らないことを検証する。
func TestDiskStore_Put_DoesNotLeaveTempFileOnSuccess(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewDiskStore returned error: %v", err)
	}

	ref, err := store.Put(context.Background(), "user-1/story-2.jpg", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Root(), ref) + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temp file to be removed after successful Put")
	}
}
