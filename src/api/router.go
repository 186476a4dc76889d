package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig 路由相关配置
type RouterConfig struct {
	Mode           string
	AllowedOrigins []string
}

// SetupRouter 注册全部路由
func SetupRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	setupValidator()

	router := gin.New()
	router.Use(gin.Recovery())

	// 未配置来源时允许所有来源
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(RequestIDMiddleware())

	router.GET("/healthz", h.Health)
	router.GET("/logs", h.Logs)

	api := router.Group("/api")
	{
		api.GET("/options", h.Options)
		api.GET("/metrics", h.Metrics)
		api.GET("/dashboard", h.Dashboard)
		api.GET("/trends", h.Trends)
		api.GET("/departments/trends", h.DepartmentTrends)
		api.GET("/terms/:term", h.TermSubset)
		api.GET("/compare", h.Compare)
		api.GET("/summary", h.Summary)
		api.GET("/report.xlsx", h.Report)
	}
	return router
}
