package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"lessin/internal/api/middleware"
	"lessin/internal/metrics"
	"lessin/internal/storage"
)

// ErrInfected 表示上传内容未通过病毒扫描。
var ErrInfected = errors.New("malicious file detected")

// Scanner 在写入存储前检查上传内容。
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) error
}

// NopScanner accepts everything; used when no clamd address is configured.
type NopScanner struct{}

func (NopScanner) Scan(context.Context, io.Reader) error { return nil }

// ClamdScanner streams content to a clamd daemon.
type ClamdScanner struct {
	client *clamd.Clamd
}

func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{client: clamd.NewClamd(addr)}
}

func (s *ClamdScanner) Scan(ctx context.Context, r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("clamd scan: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			if result.Status == clamd.RES_FOUND {
				return ErrInfected
			}
			if result.Status != clamd.RES_OK {
				return fmt.Errorf("clamd scan: %s %s", result.Status, result.Description)
			}
		}
	}
}

// storedFile 是一次上传落盘后的结果。
type storedFile struct {
	Key  string
	Name string
	URL  string
}

// uploader 负责扫描并写入上传文件，返回可公开访问的 URL。
type uploader struct {
	store         storage.Store
	scanner       Scanner
	publicBaseURL string
}

func (u uploader) save(ctx context.Context, kind string, fh *multipart.FileHeader) (storedFile, error) {
	if u.scanner != nil {
		src, err := fh.Open()
		if err != nil {
			return storedFile{}, fmt.Errorf("open upload: %w", err)
		}
		err = u.scanner.Scan(ctx, src)
		src.Close()
		if err != nil {
			return storedFile{}, err
		}
	}

	src, err := fh.Open()
	if err != nil {
		return storedFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.NewObjectKey(fh.Filename)
	if err := u.store.Put(ctx, key, src, fh.Size, contentType); err != nil {
		return storedFile{}, fmt.Errorf("store upload: %w", err)
	}
	metrics.ObserveUpload(kind, fh.Size)

	return storedFile{
		Key:  key,
		Name: fh.Filename,
		URL:  storage.PublicURL(u.publicBaseURL, key),
	}, nil
}

// discard 删除写入后未能落库的对象，失败只记录日志。
func (u uploader) discard(ctx context.Context, logger *slog.Logger, key string) {
	if err := u.store.Delete(ctx, key); err != nil {
		logger.Warn("discard orphan upload failed", slog.String("key", key), slog.Any("error", err))
	}
}

// respondUploadError 区分扫描拒绝与内部错误。
func respondUploadError(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, ErrInfected) {
		BadRequest(c, ErrInfected.Error())
		return
	}
	logger.Error("save upload failed", slog.Any("error", err))
	Internal(c, "failed to store file")
}

// UploadHandler 提供 /uploads 下的文件读取。
type UploadHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewUploadHandler(deps Deps) *UploadHandler {
	return &UploadHandler{store: deps.Store, logger: deps.Logger}
}

// Serve 按 key 返回原始字节。
func (h *UploadHandler) Serve(c *gin.Context) {
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	if !storage.ValidKey(key) {
		NotFound(c, "file not found")
		return
	}

	rc, info, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "file not found")
			return
		}
		loggerFor(c, h.logger).Error("open upload failed",
			slog.String("key", key),
			slog.String("correlation_id", middleware.GetCorrelationID(c)),
			slog.Any("error", err),
		)
		Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{}
	if !info.LastModified.IsZero() {
		headers["Last-Modified"] = info.LastModified.UTC().Format(http.TimeFormat)
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, headers)
}
