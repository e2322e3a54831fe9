package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lessin/internal/database"
)

type uploadResumeRequest struct {
	UserID uint `form:"user_id" binding:"required"`
}

// UploadResume 保存简历文件并登记记录。
func (h *ProfileHandler) UploadResume(c *gin.Context) {
	var req uploadResumeRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.Uint64("user_id", uint64(req.UserID)))
	if err := requireUser(ctx, h.db, req.UserID); err != nil {
		respondLookupError(c, logger, err, "User not found")
		return
	}

	stored, err := h.files.save(ctx, "resume", fh)
	if err != nil {
		respondUploadError(c, logger, err)
		return
	}

	resume := database.Resume{
		UserID:     req.UserID,
		FileName:   stored.Name,
		FileURL:    stored.URL,
		StorageKey: stored.Key,
	}
	if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
		h.files.discard(ctx, logger, stored.Key)
		logger.Error("create resume failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("resume uploaded", slog.Uint64("resume_id", uint64(resume.ID)), slog.Int64("size", fh.Size))
	c.JSON(http.StatusOK, resume)
}

// DeleteResume 删除记录后清理存储对象。
func (h *ProfileHandler) DeleteResume(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger)

	var resume database.Resume
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&resume, id).Error; err != nil {
			return err
		}
		return tx.Delete(&resume).Error
	})
	if err != nil {
		respondLookupError(c, logger, err, "Resume not found")
		return
	}

	purgeKeys(c, h.deps, database.NonEmptyKeys(resume.StorageKey))
	Message(c, "Resume deleted")
}
