package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerSpecPath = "/openapi/booking.swagger.json"

type Handlers struct {
	Flights    *FlightHandler
	Bookings   *BookingHandler
	Passengers *PassengerHandler
	Promos     *PromoHandler
}

// NewRouter mounts every handler under /api/v1. The swagger UI is served only when
// swaggerDir is set.
func NewRouter(h Handlers, swaggerDir string, log *slog.Logger) *gin.Engine {
	registerValidators()
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	h.Flights.Register(v1.Group("/flights"))
	h.Bookings.Register(v1.Group("/bookings"))
	h.Passengers.Register(v1.Group("/passengers"))
	h.Promos.Register(v1.Group("/promo-codes"))

	if swaggerDir != "" {
		r.StaticFile(swaggerSpecPath, filepath.Join(swaggerDir, "booking.swagger.json"))
		r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerSpecPath))))
	}
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			log.Error("request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		log.Debug("request", attrs...)
	}
}
