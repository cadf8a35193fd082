package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/dbpool"
	"github.com/waymarkhq/waymark/internal/middleware"
	"github.com/waymarkhq/waymark/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool
	Hub         *ws.Hub
	Resources   ResourceRepository
	Relations   RelationRepository
	References  ReferenceRepository
	Timeline    TimelineRepository
	Traces      TraceIngestor
	Journals    JournalManager
	Lenses      LensManager
	Landmarks   LandmarkManager
	UserLookup  middleware.UserLookup
	CORSOrigins []string
	Version     string
	ModelName   string
}

// maxBodySize limits request bodies to 10 MB; journal imports carry whole
// notebooks of raw text.
const maxBodySize = 10 << 20

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version, deps.ModelName)
	resources := NewResourceHandler(deps.Resources, log)
	relations := NewRelationHandler(deps.Relations, log)
	traces := NewTraceHandler(deps.Traces, deps.Timeline, deps.References, log)
	journals := NewJournalHandler(deps.Journals, log)
	lenses := NewLensHandler(deps.Lenses, log)
	landmarks := NewLandmarkHandler(deps.Landmarks, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// All other API routes require authentication.
	api.Use(middleware.AuthMiddleware(deps.UserLookup, log))

	// Resources.
	api.GET("/resources", resources.List)
	api.POST("/resources", resources.Create)
	api.GET("/resources/:id", resources.Get)
	api.PUT("/resources/:id", resources.Update)
	api.DELETE("/resources/:id", resources.Delete)

	// Relations.
	api.GET("/relations", relations.List)
	api.POST("/relations", relations.Create)
	api.DELETE("/relations/:id", relations.Delete)

	// Traces.
	api.POST("/traces", traces.Ingest)
	api.GET("/traces/timeline", traces.Timeline)
	api.GET("/mirrors/:id/references", traces.MirrorReferences)

	// Journals.
	api.POST("/journals", journals.Create)
	api.POST("/journals/:id/import", journals.Import)

	// Lenses.
	api.POST("/lenses", lenses.Create)
	api.GET("/lenses/:id", lenses.Get)
	api.PUT("/lenses/:id/target", lenses.SetTarget)
	api.POST("/lenses/:id/replay", lenses.Replay)

	// Landmarks.
	api.GET("/analyses/:id/landmarks", landmarks.ListForAnalysis)
	api.POST("/landmarks/:id/fork", landmarks.Fork)

	// WebSocket endpoint.
	api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.UserLookup))
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
