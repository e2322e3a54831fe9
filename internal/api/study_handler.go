package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lessin/internal/database"
)

// StudyHandler 管理学习集与其中的资料文件。
type StudyHandler struct {
	db     *gorm.DB
	files  uploader
	deps   Deps
	logger *slog.Logger
}

func NewStudyHandler(deps Deps) *StudyHandler {
	return &StudyHandler{
		db:     deps.DB,
		files:  uploader{store: deps.Store, scanner: deps.Scanner, publicBaseURL: deps.PublicBaseURL},
		deps:   deps,
		logger: deps.Logger,
	}
}

type createStudySetRequest struct {
	UserID      uint   `form:"user_id" json:"user_id" binding:"required"`
	Title       string `form:"title" json:"title" binding:"required,max=255"`
	Description string `form:"description" json:"description"`
}

// CreateSet 为用户新建学习集。
func (h *StudyHandler) CreateSet(c *gin.Context) {
	var req createStudySetRequest
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

	set := database.StudySet{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: optional(req.Description),
	}
	if err := h.db.WithContext(ctx).Create(&set).Error; err != nil {
		logger.Error("create study set failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, set)
}

// ListSets 列出某用户的学习集，user_id 取自查询参数。
func (h *StudyHandler) ListSets(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		BadRequest(c, "invalid user_id")
		return
	}

	sets := []database.StudySet{}
	if err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).Order("id").Find(&sets).Error; err != nil {
		loggerFor(c, h.logger).Error("list study sets failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (h *StudyHandler) GetSet(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var set database.StudySet
	if err := h.db.WithContext(c.Request.Context()).First(&set, id).Error; err != nil {
		respondLookupError(c, loggerFor(c, h.logger), err, "Study set not found")
		return
	}
	c.JSON(http.StatusOK, set)
}

type updateStudySetRequest struct {
	Title       string `form:"title" json:"title" binding:"required,max=255"`
	Description string `form:"description" json:"description"`
}

// UpdateSet 覆盖标题与描述。
func (h *StudyHandler) UpdateSet(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateStudySetRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := loggerFor(c, h.logger)

	var set database.StudySet
	if err := h.db.WithContext(ctx).First(&set, id).Error; err != nil {
		respondLookupError(c, logger, err, "Study set not found")
		return
	}
	set.Title = req.Title
	set.Description = optional(req.Description)
	if err := h.db.WithContext(ctx).Model(&set).Select("title", "description").Updates(&set).Error; err != nil {
		logger.Error("update study set failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, set)
}

// DeleteSet 级联删除文件、线程与消息，随后清理存储。
func (h *StudyHandler) DeleteSet(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	logger := loggerFor(c, h.logger).With(slog.Uint64("study_set_id", uint64(id)))
	keys, err := database.DeleteStudySet(c.Request.Context(), h.db, id)
	if err != nil {
		respondLookupError(c, logger, err, "Study set not found")
		return
	}

	logger.Info("study set deleted", slog.Int("files", len(keys)))
	purgeKeys(c, h.deps, keys)
	Message(c, "Study set deleted")
}

type uploadStudyFileRequest struct {
	StudySetID uint `form:"study_set_id" binding:"required"`
}

// UploadFile 向学习集添加资料文件。
func (h *StudyHandler) UploadFile(c *gin.Context) {
	var req uploadStudyFileRequest
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
	logger := loggerFor(c, h.logger).With(slog.Uint64("study_set_id", uint64(req.StudySetID)))

	var set database.StudySet
	if err := h.db.WithContext(ctx).First(&set, req.StudySetID).Error; err != nil {
		respondLookupError(c, logger, err, "Study set not found")
		return
	}

	stored, err := h.files.save(ctx, "study_file", fh)
	if err != nil {
		respondUploadError(c, logger, err)
		return
	}

	file := database.StudyFile{
		StudySetID: set.ID,
		FileName:   stored.Name,
		FileURL:    stored.URL,
		StorageKey: stored.Key,
	}
	if err := h.db.WithContext(ctx).Create(&file).Error; err != nil {
		h.files.discard(ctx, logger, stored.Key)
		logger.Error("create study file failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, file)
}

// ListFiles 返回学习集下的文件，未知学习集得到空列表。
func (h *StudyHandler) ListFiles(c *gin.Context) {
	setID, ok := parseIDParam(c, "study_set_id")
	if !ok {
		return
	}
	files := []database.StudyFile{}
	if err := h.db.WithContext(c.Request.Context()).Where("study_set_id = ?", setID).Order("id").Find(&files).Error; err != nil {
		loggerFor(c, h.logger).Error("list study files failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, files)
}

// DeleteFile 删除单个资料文件并清理存储。
func (h *StudyHandler) DeleteFile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var file database.StudyFile
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&file, id).Error; err != nil {
			return err
		}
		return tx.Delete(&file).Error
	})
	if err != nil {
		respondLookupError(c, loggerFor(c, h.logger), err, "Study file not found")
		return
	}

	purgeKeys(c, h.deps, database.NonEmptyKeys(file.StorageKey))
	Message(c, "Study file deleted")
}
