package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lessin/internal/auth"
	"lessin/internal/database"
)

// AuthHandler 处理注册与登录。
type AuthHandler struct {
	db      *gorm.DB
	issuer  auth.TokenIssuer
	limiter *loginLimiter
	logger  *slog.Logger
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(deps Deps) *AuthHandler {
	h := &AuthHandler{db: deps.DB, issuer: deps.Issuer, logger: deps.Logger}
	if deps.Redis != nil {
		h.limiter = newLoginLimiter(deps.Redis, deps.LoginRateLimitPerHour)
	}
	return h
}

type signupRequest struct {
	Username string `form:"username" json:"username" binding:"required,max=64"`
	Email    string `form:"email" json:"email" binding:"required,max=255"`
	Password string `form:"password" json:"password" binding:"required"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Signup 创建新用户账号；用户名重复返回 400。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.String("username", req.Username))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&existing).Error; err == nil {
		logger.Info("signup rejected: username exists")
		BadRequest(c, "Username already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("signup lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			BadRequest(c, err.Error())
			return
		}
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		// 并发注册同名用户时由唯一索引兜底。
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			BadRequest(c, "Username already exists")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// Login 校验口令。启用 JWT 时附带访问令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.String("username", req.Username))

	allowed, err := h.limiter.allow(ctx, c.ClientIP(), req.Username)
	if err != nil {
		logger.Warn("login rate counter failed", slog.Any("error", err))
	}
	if !allowed {
		Error(c, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			Unauthorized(c, "Invalid credentials")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		Unauthorized(c, "Invalid credentials")
		return
	}

	resp := gin.H{"message": "Login successful", "user_id": user.ID}
	session, err := h.issuer.Issue(user.ID)
	if err != nil {
		logger.Error("issue session failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if session != nil {
		resp["access_token"] = session.AccessToken
		resp["token_type"] = session.TokenType
		resp["expires_in"] = int(session.ExpiresIn.Seconds())
	}

	c.JSON(http.StatusOK, resp)
}
