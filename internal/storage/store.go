package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"lessin/internal/config"
)

// Store 是上传文件的存储后端。
type Store interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete 对不存在的对象视为成功（幂等）。
	Delete(ctx context.Context, key string) error
}

// ObjectInfo 描述存储对象的关键信息。
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// New 根据配置选择本地目录或 MinIO。
func New(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMinIO:
		return NewMinIOStore(cfg.MinIO)
	case config.StorageDriverLocal, "":
		return NewLocalStore(cfg.Storage.UploadsDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewObjectKey 生成不冲突的对象 key：<uuid>_<清洗后的原文件名>。
func NewObjectKey(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	if base == "" {
		base = "file"
	}
	return uuid.NewString() + "_" + base
}

// ValidKey rejects keys that could escape the upload root.
func ValidKey(key string) bool {
	if key == "" || len(key) > 200 || !utf8.ValidString(key) {
		return false
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, "/\\") {
		return false
	}
	return !strings.HasPrefix(key, ".")
}

// PublicURL 返回对象对外的访问地址。
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + key
}
