package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/server/handlers"
)

// Handlers groups the HTTP handlers the router wires up.
type Handlers struct {
	Projections *handlers.ProjectionHandler
	Operations  *handlers.OperationsHandler
	Reporting   *handlers.ReportingHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	cycles := r.Group("/cycles/:cycleID")
	cycles.POST("/projections", h.Projections.Create)
	cycles.GET("/projections", h.Projections.List)
	cycles.GET("/projections/current", h.Projections.Current)
	cycles.POST("/survival-adjustments", h.Operations.AdjustSurvival)
	cycles.GET("/snapshots", h.Reporting.PondSnapshots)
	cycles.GET("/kpis", h.Reporting.FarmKPIs)

	r.GET("/projections/:projectionID", h.Projections.Get)
	r.POST("/projections/:projectionID/publish", h.Projections.Publish)
	r.POST("/projections/:projectionID/cancel", h.Projections.Cancel)

	r.POST("/biometries", h.Operations.RecordBiometry)
	r.POST("/seeding-plans/:planID/confirm", h.Operations.ConfirmSeeding)
	r.POST("/harvest-waves/:waveID/confirm", h.Operations.ConfirmHarvest)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
