package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/magda-accompanist/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/magda-accompanist/internal/api/middleware"
	"github.com/Conceptual-Machines/magda-accompanist/internal/arranger"
	"github.com/Conceptual-Machines/magda-accompanist/internal/config"
	"github.com/Conceptual-Machines/magda-accompanist/internal/metrics"
	"github.com/Conceptual-Machines/magda-accompanist/internal/services"
)

// SetupRouter builds the HTTP API. db may be nil, in which case the
// stored-generation endpoints answer 503.
func SetupRouter(db *gorm.DB, a *arranger.Arranger, cw *metrics.Client, cfg *config.Config, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cw))

	router.Use(apimiddleware.CORS())

	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(version, a.Theory(), db != nil)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	var store *services.GenerationStore
	if db != nil {
		store = services.NewGenerationStore(db)
	}

	v1 := router.Group("/api/v1")
	v1.Use(apimiddleware.Auth(cfg.IsGatewayMode()))
	{
		genresHandler := handlers.NewGenresHandler(a.Theory())
		v1.GET("/genres", genresHandler.ListGenres)

		arrangementHandler := handlers.NewArrangementHandler(a, store, cw, cfg.DefaultGenre)
		v1.POST("/arrangements", arrangementHandler.Generate)
		v1.POST("/arrangements/midi", arrangementHandler.GenerateMIDI)
		v1.GET("/arrangements", arrangementHandler.List)
		v1.GET("/arrangements/:id", arrangementHandler.Get)
	}

	return router
}
