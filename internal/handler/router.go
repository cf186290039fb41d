package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"cinema-booking/internal/handler/api"
	"cinema-booking/internal/handler/middleware"
	"cinema-booking/internal/pkg/config"
	"cinema-booking/internal/pkg/metrics"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

type RouterParams struct {
	fx.In

	Engine         *gin.Engine
	Config         config.Config
	Logger         *middleware.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	BookingHandler *api.BookingHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func NewRouter(p RouterParams) {
	setupMiddleware(p)
	setupRoutes(p)
}

func setupMiddleware(p RouterParams) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	p.Engine.Use(middleware.CustomRecovery())
	p.Engine.Use(middleware.NewCORSMiddleware(p.Config.CORS))
	p.Engine.Use(p.Logger.LoggingMiddleware())
	p.Engine.Use(middleware.MetricsMiddleware(p.Metrics))
	p.Engine.Use(middleware.ErrorHandler())
}

func setupRoutes(p RouterParams) {
	p.Engine.GET("/health", healthCheck)
	p.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})))

	if gin.Mode() == gin.DebugMode {
		p.Engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := p.Engine.Group("/api")
	apiGroup.Use(p.AuthMiddleware.RequireAuth())
	{
		addRoutes(apiGroup.Group("/shows"), []route{
			{Method: http.MethodPost, Path: "/:id/bookings", Handler: p.BookingHandler.Create},
			{Method: http.MethodGet, Path: "/:id/availability", Handler: p.BookingHandler.Availability},
		})

		addRoutes(apiGroup.Group("/bookings"), []route{
			{Method: http.MethodGet, Path: "/me", Handler: p.BookingHandler.ListMine},
			{Method: http.MethodPost, Path: "/:id/cancel", Handler: p.BookingHandler.Cancel},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		g.Handle(r.Method, r.Path, r.Handler)
	}
}
