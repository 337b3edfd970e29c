// Package storage 文档文件存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrStorage 文件读写删除失败
var ErrStorage = errors.New("文件存储操作失败")

// ErrInvalidPath 路径越出存储根目录
var ErrInvalidPath = errors.New("非法的存储路径")

// Handle 已存储文件的句柄（相对存储根目录的路径）
type Handle string

// Storage 文件存储接口
type Storage interface {
	Save(ctx context.Context, path string, r io.Reader) (Handle, int64, error)
	Open(ctx context.Context, h Handle) (io.ReadCloser, error)
	Delete(ctx context.Context, h Handle) error
}

// DocumentPath 文档文件路径：documents/<实习生ID>/<uuid>-<文件名>
// 文件名只保留最后一段，防止调用方带入目录
func DocumentPath(internID, fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	return fmt.Sprintf("documents/%s/%s-%s", internID, uuid.New().String(), base)
}

// ── 本地磁盘实现 ──

// LocalStorage 以本地目录为根的存储
type LocalStorage struct {
	root string
}

// NewLocalStorage 创建本地存储，根目录不存在时自动创建
func NewLocalStorage(root string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析根目录: %v", ErrStorage, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: 创建根目录: %v", ErrStorage, err)
	}
	return &LocalStorage{root: abs}, nil
}

// Save 写入文件，返回句柄与写入字节数；写入失败时清理残留文件
func (s *LocalStorage) Save(ctx context.Context, path string, r io.Reader) (Handle, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return Handle(filepath.ToSlash(path)), n, nil
}

// Open 打开文件读取
func (s *LocalStorage) Open(ctx context.Context, h Handle) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(string(h))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return f, nil
}

// Delete 删除文件；文件本就不存在视为成功
func (s *LocalStorage) Delete(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(string(h))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// resolve 把相对路径映射到根目录下，拒绝 ../ 之类的越界路径
func (s *LocalStorage) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidPath
	}
	return full, nil
}
