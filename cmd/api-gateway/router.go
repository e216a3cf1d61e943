package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/handler"
	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	"github.com/noah-isme/coursehub-api/pkg/config"
	"github.com/noah-isme/coursehub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coursehub-api/pkg/middleware/cors"
	"github.com/noah-isme/coursehub-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth          *handler.AuthHandler
	resources     *handler.ResourceHandler
	tags          *handler.TagHandler
	courses       *handler.CourseHandler
	reviews       *handler.ReviewHandler
	announcements *handler.AnnouncementHandler
	users         *handler.UserHandler
	exports       *handler.ExportHandler
	metrics       *handler.MetricsHandler

	tokens     middleware.TokenValidator
	audit      middleware.AuditRecorder
	metricsSvc *service.MetricsService
	limiter    *middleware.RateLimiter
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestid.Middleware(),
		logger.GinMiddleware(logr),
		corsmiddleware.New(cfg.CORS.AllowedOrigins),
		middleware.Metrics(deps.metricsSvc),
		middleware.WithResponseMeta(),
	)

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(deps.tokens)
	limited := deps.limiter.Middleware()
	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", limited, deps.auth.Register)
	auth.POST("/login", limited, deps.auth.Login)
	auth.POST("/refresh", deps.auth.Refresh)
	auth.POST("/logout", authRequired, deps.auth.Logout)
	auth.POST("/change-password", authRequired, deps.auth.ChangePassword)

	api.GET("/me", authRequired, deps.auth.Me)
	api.PUT("/me", authRequired, deps.auth.UpdateMe)

	tags := api.Group("/tags")
	tags.POST("/parse", deps.tags.Parse)
	tags.POST("/canonicalize", deps.tags.Canonicalize)

	resources := api.Group("/resources")
	resources.GET("", deps.resources.List)
	resources.GET("/:id", deps.resources.Get)
	resources.GET("/:id/download-url", deps.resources.DownloadURL)
	resources.GET("/:id/download", deps.resources.Download)
	resources.POST("", authRequired, deps.resources.Create)
	resources.POST("/upload", authRequired, limited, deps.resources.Upload)
	resources.PUT("/:id", authRequired, deps.resources.Update)
	resources.DELETE("/:id", authRequired, deps.resources.Delete)

	moderators := []gin.HandlerFunc{authRequired, middleware.RequireModerator()}
	courses := api.Group("/courses")
	courses.GET("", deps.courses.List)
	courses.GET("/:id", deps.courses.Get)
	courses.GET("/:id/offerings", deps.courses.ListOfferings)
	courses.GET("/:id/reviews", deps.reviews.List)
	courses.POST("/:id/reviews", authRequired, deps.reviews.Create)
	courses.POST("", append(moderators,
		middleware.Audit(deps.audit, logr, models.AuditActionCourseCreate, "courses"),
		deps.courses.Create)...)
	courses.POST("/:id/offerings", append(moderators,
		middleware.Audit(deps.audit, logr, models.AuditActionOfferingCreate, "course_offerings"),
		deps.courses.CreateOffering)...)

	api.DELETE("/reviews/:id", authRequired, deps.reviews.Delete)

	admins := []gin.HandlerFunc{authRequired, middleware.RequireRoles(models.RoleAdmin)}
	announcements := api.Group("/announcements")
	announcements.GET("", middleware.OptionalJWT(deps.tokens), deps.announcements.List)
	announcements.GET("/:id", deps.announcements.Get)
	announcements.POST("", append(admins,
		middleware.Audit(deps.audit, logr, models.AuditActionAnnouncementCreate, "announcements"),
		deps.announcements.Create)...)
	announcements.PUT("/:id", append(admins,
		middleware.Audit(deps.audit, logr, models.AuditActionAnnouncementUpdate, "announcements"),
		deps.announcements.Update)...)
	announcements.DELETE("/:id", append(admins,
		middleware.Audit(deps.audit, logr, models.AuditActionAnnouncementDelete, "announcements"),
		deps.announcements.Delete)...)

	if deps.exports != nil {
		api.POST("/exports", authRequired, deps.exports.Create)
		api.GET("/exports/:id", authRequired, deps.exports.Status)
		api.GET("/export/:token", deps.exports.Download)
	}

	admin := api.Group("/admin", admins...)
	admin.GET("/metrics", deps.metrics.Snapshot)
	admin.GET("/users", deps.users.List)
	admin.GET("/users/:id", deps.users.Get)
	admin.PUT("/users/:id", deps.users.Update)
	admin.DELETE("/users/:id", deps.users.Delete)

	return r
}
