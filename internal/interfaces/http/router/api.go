package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/stocksync/backend/docs"
	"github.com/stocksync/backend/internal/infrastructure/auth"
	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/interfaces/http/handler"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the admin API endpoints
type Handlers struct {
	SyncJobs *handler.SyncJobHandler
	Reviews  *handler.ReviewHandler
	Exports  *handler.ExportHandler
	Sources  *handler.SourceHandler
	CSVFeeds *handler.CSVFeedHandler
	Health   *handler.HealthHandler
}

// EngineOptions carries the cross-cutting pieces of the admin API
type EngineOptions struct {
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	// Metrics is optional
	Metrics *middleware.HTTPMetrics
	Logger  *zap.Logger
}

// NewEngine builds the admin API. Middleware order:
//  1. RequestID, Recovery, RequestLogger
//  2. Tracing
//  3. Metrics, Secure, BodyLimit, Timeout
//  4. OperatorAuth, SpanOperator and the per-operator RateLimit, on /api/v1 only
//
// /health and /swagger are served without a token.
func NewEngine(jwtService *auth.JWTService, h Handlers, opts EngineOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.Tracing(opts.Tracing)...)
	if opts.Metrics != nil {
		engine.Use(opts.Metrics.Middleware())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(opts.HTTP.BodyLimit))
	engine.Use(middleware.Timeout(opts.HTTP.RequestTimeout))

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	// OpenAPI document and UI, outside the authenticated group
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(
		middleware.OperatorAuth(jwtService, log),
		middleware.SpanOperator(),
		middleware.RateLimit(middleware.NewRateLimiter(opts.HTTP.RateLimit, opts.HTTP.RateBurst)),
	)

	for _, g := range adminGroups(h) {
		r.Register(g)
	}

	r.Setup()
	return engine
}

// adminGroups lists the admin endpoints of the handlers that are present
func adminGroups(h Handlers) []*ScopedGroup {
	var groups []*ScopedGroup
	if h.SyncJobs != nil {
		groups = append(groups, NewScopedGroup("/sync/jobs").
			GET("", auth.ScopeSyncRead, h.SyncJobs.List).
			POST("", auth.ScopeSyncRun, h.SyncJobs.Submit).
			GET("/:id", auth.ScopeSyncRead, h.SyncJobs.Get).
			GET("/:id/logs", auth.ScopeSyncRead, h.SyncJobs.Logs).
			POST("/:id/cancel", auth.ScopeSyncRun, h.SyncJobs.Cancel))
	}
	if h.Reviews != nil {
		groups = append(groups, NewScopedGroup("/review").
			GET("", auth.ScopeSyncRead, h.Reviews.List).
			POST("/hide", auth.ScopeReview, h.Reviews.Hide).
			POST("/unhide", auth.ScopeReview, h.Reviews.Unhide))
	}
	if h.Exports != nil {
		groups = append(groups, NewScopedGroup("/update-logs").
			GET("/:gid/export", auth.ScopeSyncRead, h.Exports.Export))
	}
	if h.Sources != nil {
		groups = append(groups, NewScopedGroup("/sources").
			GET("", auth.ScopeSyncRead, h.Sources.List))
	}
	if h.CSVFeeds != nil {
		groups = append(groups, NewScopedGroup("/csv-feeds").
			GET("", auth.ScopeSyncRead, h.CSVFeeds.List).
			POST("", auth.ScopeCSVUpload, h.CSVFeeds.Upload))
	}
	return groups
}
