package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func Unauthorized(c *gin.Context, msg string) { Error(c, http.StatusUnauthorized, msg) }
func BadRequest(c *gin.Context, msg string)   { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)     { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)     { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)     { Error(c, http.StatusInternalServerError, msg) }

// Message answers 200 with a short confirmation.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// parseIDParam 解析路径中的正整数 ID，失败时直接写回 400。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
