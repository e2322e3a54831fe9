package api

import (
	"github.com/gin-gonic/gin"

	"lessin/internal/api/middleware"
)

// RegisterRoutes 注册全部业务路由。Redis 未配置时不暴露 WebSocket。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	deps = deps.withDefaults()

	authHandler := NewAuthHandler(deps)
	planHandler := NewPlanHandler(deps)
	profileHandler := NewProfileHandler(deps)
	studyHandler := NewStudyHandler(deps)
	chatHandler := NewChatHandler(deps)
	uploadHandler := NewUploadHandler(deps)

	router.Use(middleware.OptionalAuth(deps.Issuer))

	router.POST("/signup", authHandler.Signup)
	router.POST("/login", authHandler.Login)
	router.POST("/survey", profileHandler.SubmitSurvey)

	plans := router.Group("/plans")
	{
		plans.POST("/generate", planHandler.Generate)
		plans.GET("/:id", planHandler.Get)
	}

	router.GET("/profile/:user_id", profileHandler.GetProfile)

	skills := router.Group("/skills")
	{
		skills.POST("", profileHandler.AddSkill)
		skills.POST("/batch", profileHandler.BatchSkills)
		skills.DELETE("/:id", profileHandler.DeleteSkill)
	}

	resumes := router.Group("/resumes")
	{
		resumes.POST("", profileHandler.UploadResume)
		resumes.DELETE("/:id", profileHandler.DeleteResume)
	}

	experiences := router.Group("/experiences")
	{
		experiences.POST("", profileHandler.AddExperience)
		experiences.PUT("/:id", profileHandler.UpdateExperience)
		experiences.DELETE("/:id", profileHandler.DeleteExperience)
	}

	studySets := router.Group("/studysets")
	{
		studySets.POST("", studyHandler.CreateSet)
		studySets.GET("", studyHandler.ListSets)
		studySets.GET("/:id", studyHandler.GetSet)
		studySets.PUT("/:id", studyHandler.UpdateSet)
		studySets.DELETE("/:id", studyHandler.DeleteSet)
	}

	studyFiles := router.Group("/studyfiles")
	{
		studyFiles.POST("", studyHandler.UploadFile)
		studyFiles.GET("/:study_set_id", studyHandler.ListFiles)
		studyFiles.DELETE("/:id", studyHandler.DeleteFile)
	}

	chats := router.Group("/chats")
	{
		chats.GET("/thread/:study_set_id", chatHandler.GetThread)
		chats.GET("/messages/:thread_id", chatHandler.ListMessages)
		chats.POST("/messages", chatHandler.PostMessage)
		if deps.Redis != nil {
			chats.GET("/ws/:thread_id", NewWsHandler(deps).StreamThread)
		}
	}

	router.GET("/uploads/*key", uploadHandler.Serve)
}
