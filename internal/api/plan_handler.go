package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lessin/internal/database"
	"lessin/internal/plan"
)

// PlanHandler 生成并查询学习计划。
type PlanHandler struct {
	db      *gorm.DB
	planner plan.Generator
	logger  *slog.Logger
}

func NewPlanHandler(deps Deps) *PlanHandler {
	return &PlanHandler{db: deps.DB, planner: deps.Planner, logger: deps.Logger}
}

type generatePlanRequest struct {
	Topics string `form:"topics" json:"topics" binding:"required"`
}

// Generate 调用生成器并保存结果。
func (h *PlanHandler) Generate(c *gin.Context) {
	var req generatePlanRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger)

	draft, err := h.planner.Generate(ctx, req.Topics)
	if err != nil {
		if errors.Is(err, plan.ErrEmptyTopics) {
			BadRequest(c, err.Error())
			return
		}
		logger.Error("generate plan failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	record := database.Plan{
		Topics:  req.Topics,
		Content: draft.Content,
		Steps:   datatypes.JSONSlice[string](draft.Steps),
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("save plan failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": record})
}

// Get 按 ID 返回已保存的计划。
func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var record database.Plan
	if err := h.db.WithContext(c.Request.Context()).First(&record, id).Error; err != nil {
		respondLookupError(c, loggerFor(c, h.logger), err, "Plan not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": record})
}
