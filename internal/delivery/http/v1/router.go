package v1

import (
	"net/http"
	"time"

	"go-recruitment-scheduler/config"
	"go-recruitment-scheduler/internal/delivery/http/middleware"
	"go-recruitment-scheduler/internal/delivery/http/response"
	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/internal/usecase"
	"go-recruitment-scheduler/pkg/audit"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	InterviewUC    domain.InterviewUsecase
	AvailabilityUC domain.AvailabilityUsecase
	HealthUC       usecase.HealthUsecase
	Redis          *goredis.Client // nil: in-memory rate limiting
	Audit          *audit.Logger
	Config         *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	isProduction := deps.Config.Environment == "production"

	// Global Middlewares
	r.Use(middleware.CORSMiddleware([]string{deps.Config.FrontendURL}, isProduction)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeadersMiddleware(isProduction))
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}
		status, healthy := deps.HealthUC.Check(c.Request.Context())
		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	writeLimit := middleware.RateLimitMiddleware(deps.Redis, middleware.WriteRateLimitConfig(
		deps.Config.RateLimitWriteThreshold,
		time.Duration(deps.Config.RateLimitWindowSeconds)*time.Second,
	), deps.Audit)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Config.JWTSecret))
	{
		NewInterviewHandler(protected, deps.InterviewUC, writeLimit)
		NewAvailabilityHandler(protected, deps.AvailabilityUC, writeLimit)
	}

	return r
}
