package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"lessin/internal/api/middleware"
	"lessin/internal/auth"
	"lessin/internal/chat"
	"lessin/internal/database"
	"lessin/internal/plan"
	"lessin/internal/storage"
	"lessin/internal/tasks"
)

// Deps 汇总各 handler 共享的依赖。Redis 为 nil 时关闭限流与实时推送。
type Deps struct {
	DB        *gorm.DB
	Store     storage.Store
	Purger    tasks.Purger
	Planner   plan.Generator
	Publisher chat.Publisher
	Issuer    auth.TokenIssuer
	Scanner   Scanner
	Redis     redis.UniversalClient
	Logger    *slog.Logger

	PublicBaseURL         string
	LoginRateLimitPerHour int
	AllowedOrigins        []string
}

// withDefaults 为未注入的可选依赖填入空实现。
func (d Deps) withDefaults() Deps {
	if d.Planner == nil {
		d.Planner = plan.PlaceholderGenerator{}
	}
	if d.Publisher == nil {
		d.Publisher = chat.NopPublisher{}
	}
	if d.Issuer == nil {
		d.Issuer = auth.NoopIssuer{}
	}
	if d.Scanner == nil {
		d.Scanner = NopScanner{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Purger == nil {
		d.Purger = tasks.NewInlinePurger(d.Store, d.Logger)
	}
	return d
}

func loggerFor(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

var errUserNotFound = errors.New("user not found")

// requireUser 确认用户存在；不存在时返回 errUserNotFound。
func requireUser(ctx context.Context, db *gorm.DB, userID uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errUserNotFound
	}
	return nil
}

// respondLookupError 将查询错误映射为 404 或 500。
func respondLookupError(c *gin.Context, logger *slog.Logger, err error, notFoundMsg string) {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, errUserNotFound) {
		NotFound(c, notFoundMsg)
		return
	}
	logger.Error("database lookup failed", slog.Any("error", err))
	Internal(c, "internal error")
}
