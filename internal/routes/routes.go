package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/damoang/angple-qualitygate/internal/config"
	"github.com/damoang/angple-qualitygate/internal/handler"
	"github.com/damoang/angple-qualitygate/internal/middleware"
	"github.com/damoang/angple-qualitygate/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	qualityHandler *handler.QualityHandler,
	scheduleHandler *handler.ScheduleHandler,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager), middleware.RequireTenant(cfg.Quality.PlatformOperatorLevel))
	limited := middleware.RateLimitPerUser(redisClient, middleware.DefaultRateLimitConfig())
	reviewer := middleware.RequireReviewer(cfg.Quality.MinReviewerLevel)

	// Scheduled posts
	schedule := api.Group("/schedule")
	schedule.POST("", limited, scheduleHandler.CreateSchedule)
	schedule.GET("/:postId", scheduleHandler.GetSchedule)
	schedule.DELETE("/:postId", scheduleHandler.DeleteSchedule)

	// Quality gate
	quality := api.Group("/quality")
	quality.GET("/pending-review", reviewer, qualityHandler.ListPendingReview)
	quality.GET("/brand-kit", qualityHandler.GetBrandKit)
	quality.PUT("/brand-kit", reviewer, qualityHandler.PutBrandKit)
	quality.GET("/:postId/report", qualityHandler.GetReport)
	quality.GET("/:postId/audit", qualityHandler.GetAudit)
	quality.POST("/:postId/evaluate", limited, qualityHandler.Evaluate)
	quality.POST("/:postId/approve", reviewer, qualityHandler.Approve)
	quality.POST("/:postId/reject", reviewer, qualityHandler.Reject)

	// Publish scheduler callbacks
	quality.GET("/:postId/can-publish", qualityHandler.CanPublish)
	quality.POST("/:postId/published", qualityHandler.MarkPublished)
	quality.POST("/:postId/publish-failed", qualityHandler.MarkPublishFailed)
}
