package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lessin/internal/chat"
	"lessin/internal/database"
	"lessin/internal/metrics"
)

// ChatHandler 管理学习集的聊天线程与消息。
type ChatHandler struct {
	db        *gorm.DB
	publisher chat.Publisher
	logger    *slog.Logger
}

func NewChatHandler(deps Deps) *ChatHandler {
	return &ChatHandler{db: deps.DB, publisher: deps.Publisher, logger: deps.Logger}
}

// GetThread 返回学习集的唯一线程，不存在时创建。
func (h *ChatHandler) GetThread(c *gin.Context) {
	setID, ok := parseIDParam(c, "study_set_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.Uint64("study_set_id", uint64(setID)))

	var set database.StudySet
	if err := h.db.WithContext(ctx).First(&set, setID).Error; err != nil {
		respondLookupError(c, logger, err, "Study set not found")
		return
	}

	thread, err := getOrCreateThread(ctx, h.db, set.ID)
	if err != nil {
		logger.Error("get or create thread failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, thread)
}

// getOrCreateThread 依赖 study_set_id 唯一索引：并发创建时冲突方不插入，
// 统一回读已存在的那一行。
func getOrCreateThread(ctx context.Context, db *gorm.DB, studySetID uint) (database.ChatThread, error) {
	var thread database.ChatThread
	err := db.WithContext(ctx).Where("study_set_id = ?", studySetID).First(&thread).Error
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return thread, err
	}

	candidate := database.ChatThread{StudySetID: studySetID}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "study_set_id"}}, DoNothing: true}).
		Create(&candidate)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return thread, res.Error
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return candidate, nil
	}

	metrics.ObserveThreadRace()
	if err := db.WithContext(ctx).Where("study_set_id = ?", studySetID).First(&thread).Error; err != nil {
		return thread, err
	}
	return thread, nil
}

// ListMessages 按创建顺序返回线程消息。
func (h *ChatHandler) ListMessages(c *gin.Context) {
	threadID, ok := parseIDParam(c, "thread_id")
	if !ok {
		return
	}
	messages := []database.ChatMessage{}
	err := h.db.WithContext(c.Request.Context()).
		Where("thread_id = ?", threadID).
		Order("created_at, id").
		Find(&messages).Error
	if err != nil {
		loggerFor(c, h.logger).Error("list messages failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, messages)
}

type postMessageRequest struct {
	ThreadID uint   `form:"thread_id" json:"thread_id" binding:"required"`
	Sender   string `form:"sender" json:"sender" binding:"required"`
	Content  string `form:"content" json:"content" binding:"required"`
}

// PostMessage 追加消息并推送给实时订阅者。
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sender, err := chat.ParseSender(req.Sender)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger).With(slog.Uint64("thread_id", uint64(req.ThreadID)))

	var thread database.ChatThread
	if err := h.db.WithContext(ctx).First(&thread, req.ThreadID).Error; err != nil {
		respondLookupError(c, logger, err, "Thread not found")
		return
	}

	msg := database.ChatMessage{ThreadID: thread.ID, Sender: sender, Content: req.Content}
	if err := h.db.WithContext(ctx).Create(&msg).Error; err != nil {
		logger.Error("create message failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 推送失败不影响已保存的消息。
	if payload, err := json.Marshal(msg); err == nil {
		if err := h.publisher.Publish(ctx, thread.ID, payload); err != nil {
			logger.Warn("publish message failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusOK, msg)
}
