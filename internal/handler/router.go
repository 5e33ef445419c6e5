package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sitebuilder-backend/internal/config"
)

type Handlers struct {
	Project *ProjectHandler
	Session *SessionHandler
	Events  *EventsHandler
}

// SetupRouter builds the engine with middleware and every route. The gin
// mode is left to the caller.
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	}
	router.GET("/health", health)

	api := router.Group("/api")
	{
		api.GET("/health", health)

		api.POST("/generate-project", h.Project.GenerateProject)
		api.POST("/save-file", h.Project.SaveFile)
		api.POST("/create-project", h.Project.CreateProject)
		api.POST("/preview", h.Project.Preview)

		projects := api.Group("/projects")
		{
			projects.GET("", h.Project.ListProjects)
			projects.GET("/:projectId/files", h.Project.GetProjectFiles)
			projects.GET("/:projectId/preview", h.Project.GetProjectPreview)
			projects.GET("/:projectId/events", h.Events.StreamProjectEvents)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.Session.CreateSession)
			sessions.GET("/:sessionId", h.Session.GetSession)
			sessions.DELETE("/:sessionId", h.Session.DeleteSession)
			sessions.POST("/:sessionId/messages", h.Session.SendMessage)
			sessions.PUT("/:sessionId/files", h.Session.UpdateFile)
			sessions.POST("/:sessionId/files/retry", h.Session.RetrySave)
			sessions.GET("/:sessionId/preview", h.Session.GetPreview)
			sessions.GET("/:sessionId/tree", h.Session.GetTree)
		}
	}

	// 预览站点
	router.GET("/user-projects/:projectId/*filepath", h.Project.ServeProjectFile)
	router.GET("/ws", h.Events.HandleWS)

	return router
}
