// Package storage 保存上传文件，审核通过前只存在于不对外提供的暂存目录
package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"raft_chat_server/pkg/errorx"
)

// BlobStore 文件存储
// Save 返回的 key 只在服务内部流转；只有 Publish 之后的文件才有对外地址
type BlobStore interface {
	// Save 写入暂存区，返回存储 key
	Save(ctx context.Context, roomId, fileId, fileName string, content io.Reader) (string, error)
	// Publish 把暂存文件移动到公开目录
	Publish(ctx context.Context, key string) error
	// Unpublish 撤回 Publish，用于审核事务回滚
	Unpublish(ctx context.Context, key string) error
	// Remove 删除 key 对应的文件（暂存与公开目录），不存在时忽略
	Remove(ctx context.Context, key string) error
	// URL 已公开文件的访问地址
	URL(key string) string
}

// LocalStore 本地磁盘存储
// publicRoot 由 https_server 以静态资源方式对外提供，stagingRoot 不对外
type LocalStore struct {
	stagingRoot string
	publicRoot  string
	baseUrl     string
}

// NewLocalStore stagingRoot 为暂存目录，publicRoot 为公开目录，baseUrl 为对外访问前缀（如 /static/files）
func NewLocalStore(stagingRoot, publicRoot, baseUrl string) *LocalStore {
	return &LocalStore{
		stagingRoot: stagingRoot,
		publicRoot:  publicRoot,
		baseUrl:     strings.TrimRight(baseUrl, "/"),
	}
}

// Save 按 <stagingRoot>/<roomId>/<fileId><ext> 落盘，文件名只保留扩展名
func (s *LocalStore) Save(ctx context.Context, roomId, fileId, fileName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errorx.Wrap(err, errorx.CodeUnavailable, "save file cancelled")
	}
	key := path.Join(filepath.Base(roomId), filepath.Base(fileId)+strings.ToLower(filepath.Ext(fileName)))
	dst := s.pathIn(s.stagingRoot, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return "", errorx.Wrapf(err, errorx.CodeUnavailable, "create dir for %s", key)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", errorx.Wrapf(err, errorx.CodeUnavailable, "create file %s", dst)
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", errorx.Wrapf(err, errorx.CodeUnavailable, "write file %s", dst)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", errorx.Wrapf(err, errorx.CodeUnavailable, "close file %s", dst)
	}
	return key, nil
}

func (s *LocalStore) Publish(_ context.Context, key string) error {
	return move(s.pathIn(s.stagingRoot, key), s.pathIn(s.publicRoot, key))
}

func (s *LocalStore) Unpublish(_ context.Context, key string) error {
	return move(s.pathIn(s.publicRoot, key), s.pathIn(s.stagingRoot, key))
}

func (s *LocalStore) Remove(_ context.Context, key string) error {
	for _, root := range []string{s.stagingRoot, s.publicRoot} {
		dst := s.pathIn(root, key)
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return errorx.Wrapf(err, errorx.CodeUnavailable, "remove file %s", dst)
		}
	}
	return nil
}

func (s *LocalStore) URL(key string) string {
	return s.baseUrl + path.Clean("/"+key)
}

// pathIn key 只能落在 root 之下
func (s *LocalStore) pathIn(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(path.Clean("/"+key)))
}

func move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errorx.Wrapf(err, errorx.CodeUnavailable, "create dir for %s", dst)
	}
	if err := os.Rename(src, dst); err != nil {
		return errorx.Wrapf(err, errorx.CodeUnavailable, "move %s to %s", src, dst)
	}
	return nil
}

var _ BlobStore = (*LocalStore)(nil)
