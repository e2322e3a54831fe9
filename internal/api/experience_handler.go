package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"lessin/internal/database"
	"lessin/internal/profile"
)

type experienceRequest struct {
	UserID      uint   `form:"user_id" json:"user_id"`
	Title       string `form:"title" json:"title" binding:"required,max=255"`
	Company     string `form:"company" json:"company" binding:"required,max=255"`
	Location    string `form:"location" json:"location"`
	Type        string `form:"type" json:"type"`
	StartDate   string `form:"start_date" json:"start_date"`
	EndDate     string `form:"end_date" json:"end_date"`
	BulletsJSON string `form:"bullets_json" json:"bullets_json"`
	Bullets     string `form:"bullets" json:"bullets"`
}

// apply 将请求字段整体写入经历记录。
func (r experienceRequest) apply(exp *database.Experience) error {
	raw := r.BulletsJSON
	if raw == "" {
		raw = r.Bullets
	}
	bullets, err := profile.ParseNameList(raw)
	if err != nil {
		return err
	}

	exp.Title = r.Title
	exp.Company = r.Company
	exp.Location = optional(r.Location)
	exp.Type = optional(r.Type)
	exp.StartDate = optional(r.StartDate)
	exp.EndDate = optional(r.EndDate)
	exp.Bullets = datatypes.JSONSlice[string](bullets)
	return nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// AddExperience 新增一段经历。
func (h *ProfileHandler) AddExperience(c *gin.Context) {
	var req experienceRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.UserID == 0 {
		BadRequest(c, "user_id is required")
		return
	}

	exp := database.Experience{UserID: req.UserID}
	if err := req.apply(&exp); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger)
	if err := requireUser(ctx, h.db, req.UserID); err != nil {
		respondLookupError(c, logger, err, "User not found")
		return
	}
	if err := h.db.WithContext(ctx).Create(&exp).Error; err != nil {
		logger.Error("create experience failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, exp)
}

// UpdateExperience 整体覆盖经历字段，所属用户不变。
func (h *ProfileHandler) UpdateExperience(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req experienceRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger)

	var exp database.Experience
	if err := h.db.WithContext(ctx).First(&exp, id).Error; err != nil {
		respondLookupError(c, logger, err, "Experience not found")
		return
	}
	if err := req.apply(&exp); err != nil {
		BadRequest(c, err.Error())
		return
	}
	// Select("*") 确保置空的可选字段也被写回。
	if err := h.db.WithContext(ctx).Model(&exp).Select("*").Omit("id", "user_id").Updates(&exp).Error; err != nil {
		logger.Error("update experience failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, exp)
}

// DeleteExperience 删除一段经历。
func (h *ProfileHandler) DeleteExperience(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&database.Experience{}, id)
	if res.Error != nil {
		respondLookupError(c, loggerFor(c, h.logger), res.Error, "Experience not found")
		return
	}
	if res.RowsAffected == 0 {
		NotFound(c, "Experience not found")
		return
	}
	Message(c, "Experience deleted")
}

