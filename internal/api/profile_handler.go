package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"lessin/internal/api/middleware"
	"lessin/internal/database"
	"lessin/internal/metrics"
	"lessin/internal/profile"
)

// ProfileHandler 负责偏好问卷、技能、简历与经历。
type ProfileHandler struct {
	db     *gorm.DB
	files  uploader
	deps   Deps
	logger *slog.Logger
}

func NewProfileHandler(deps Deps) *ProfileHandler {
	return &ProfileHandler{
		db:     deps.DB,
		files:  uploader{store: deps.Store, scanner: deps.Scanner, publicBaseURL: deps.PublicBaseURL},
		deps:   deps,
		logger: deps.Logger,
	}
}

type surveyRequest struct {
	UserID      uint   `form:"user_id" json:"user_id" binding:"required"`
	Preferences string `form:"preferences" json:"preferences" binding:"required"`
}

// SubmitSurvey 整体覆盖用户的偏好设置。
func (h *ProfileHandler) SubmitSurvey(c *gin.Context) {
	var req surveyRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	prefs, err := profile.ParsePreferences(req.Preferences)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.Uint64("user_id", uint64(req.UserID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, req.UserID).Error; err != nil {
		respondLookupError(c, logger, err, "User not found")
		return
	}
	if err := h.db.WithContext(ctx).Model(&user).Update("preferences", prefs).Error; err != nil {
		logger.Error("update preferences failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	user.Preferences = prefs

	c.JSON(http.StatusOK, gin.H{"message": "Preferences updated", "user": user})
}

type profileResponse struct {
	Skills      []database.Skill      `json:"skills"`
	Resumes     []database.Resume     `json:"resumes"`
	Experiences []database.Experience `json:"experiences"`
}

// GetProfile 并发读取技能、简历与经历。未知用户返回三个空列表。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	resp := profileResponse{
		Skills:      []database.Skill{},
		Resumes:     []database.Resume{},
		Experiences: []database.Experience{},
	}

	g, gctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		return h.db.WithContext(gctx).Where("user_id = ?", userID).Order("id").Find(&resp.Skills).Error
	})
	g.Go(func() error {
		return h.db.WithContext(gctx).Where("user_id = ?", userID).Order("id").Find(&resp.Resumes).Error
	})
	g.Go(func() error {
		return h.db.WithContext(gctx).Where("user_id = ?", userID).Order("id").Find(&resp.Experiences).Error
	})
	if err := g.Wait(); err != nil {
		loggerFor(c, h.logger).Error("load profile failed", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, resp)
}

type addSkillRequest struct {
	UserID    uint   `form:"user_id" json:"user_id" binding:"required"`
	SkillName string `form:"skill_name" json:"skill_name" binding:"required,max=128"`
}

// AddSkill 追加单个技能，不做去重。
func (h *ProfileHandler) AddSkill(c *gin.Context) {
	var req addSkillRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger)
	if err := requireUser(ctx, h.db, req.UserID); err != nil {
		respondLookupError(c, logger, err, "User not found")
		return
	}

	skill := database.Skill{UserID: req.UserID, SkillName: req.SkillName}
	if err := h.db.WithContext(ctx).Create(&skill).Error; err != nil {
		logger.Error("create skill failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, skill)
}

// DeleteSkill 删除单个技能。
func (h *ProfileHandler) DeleteSkill(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&database.Skill{}, id)
	if res.Error != nil {
		loggerFor(c, h.logger).Error("delete skill failed", slog.Any("error", res.Error))
		Internal(c, "internal error")
		return
	}
	if res.RowsAffected == 0 {
		NotFound(c, "Skill not found")
		return
	}
	Message(c, "Skill deleted")
}

type batchSkillsRequest struct {
	UserID     uint   `form:"user_id" json:"user_id" binding:"required"`
	SkillsJSON string `form:"skills_json" json:"skills_json"`
	Skills     string `form:"skills" json:"skills"`
}

// BatchSkills 将用户技能调和为提交的集合，整个差量在同一事务内完成。
func (h *ProfileHandler) BatchSkills(c *gin.Context) {
	var req batchSkillsRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	raw := req.SkillsJSON
	if raw == "" {
		raw = req.Skills
	}
	desired, err := profile.ParseNameList(raw)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.Uint64("user_id", uint64(req.UserID)))
	if err := requireUser(ctx, h.db, req.UserID); err != nil {
		respondLookupError(c, logger, err, "User not found")
		return
	}

	var diff profile.Diff
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []database.Skill
		if err := tx.Where("user_id = ?", req.UserID).Order("id").Find(&existing).Error; err != nil {
			return err
		}
		diff = profile.Reconcile(existing, desired)
		if len(diff.Remove) > 0 {
			if err := tx.Delete(&database.Skill{}, diff.Remove).Error; err != nil {
				return err
			}
		}
		if len(diff.Add) > 0 {
			rows := make([]database.Skill, 0, len(diff.Add))
			for _, name := range diff.Add {
				rows = append(rows, database.Skill{UserID: req.UserID, SkillName: name})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("reconcile skills failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	metrics.ObserveSkillDiff(len(diff.Add), len(diff.Remove))
	logger.Info("skills reconciled", slog.Int("added", len(diff.Add)), slog.Int("removed", len(diff.Remove)))
	c.JSON(http.StatusOK, gin.H{
		"message": "Skills updated",
		"added":   len(diff.Add),
		"removed": len(diff.Remove),
	})
}

// purgeKeys 异步清理存储对象，失败不影响已提交的删除。
func purgeKeys(c *gin.Context, deps Deps, keys []string) {
	if len(keys) == 0 {
		return
	}
	logger := loggerFor(c, deps.Logger)
	if err := deps.Purger.Purge(c.Request.Context(), keys, middleware.GetCorrelationID(c)); err != nil {
		logger.Warn("purge stored files failed", slog.Int("count", len(keys)), slog.Any("error", err))
	}
}
