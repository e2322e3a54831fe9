package storage

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrObjectNotFound 表示对象不存在，两种后端统一返回该错误。
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey 表示 key 可能逃逸出上传目录。
	ErrInvalidKey = errors.New("invalid object key")
)

// IsNoSuchKey reports whether err means the object is absent, either as
// ErrObjectNotFound or as a raw MinIO/S3 error response.
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}
