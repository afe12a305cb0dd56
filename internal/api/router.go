package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/app"
	iauth "github.com/eventpress/eventpress/internal/auth"
	"github.com/eventpress/eventpress/internal/cache"
	"github.com/eventpress/eventpress/internal/handlers"
	"github.com/eventpress/eventpress/internal/middleware"
	"github.com/eventpress/eventpress/internal/permissions"
	"github.com/eventpress/eventpress/internal/services"
)

// Services bundles the long-lived domain services exposed over HTTP.
type Services struct {
	Staff     *services.StaffService
	Claims    *services.ClaimFlow
	Checker   *permissions.Checker
	RateStore cache.Store
}

// NewRouter builds the Gin engine, wires middleware and registers the staff routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svc Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svc.Staff == nil || svc.Claims == nil || svc.Checker == nil {
		return nil, fmt.Errorf("staff, claim and permission services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if err := registerHealthRoutes(r, db); err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerStaffRoutes(api, handlers.NewStaffHandler(svc.Staff, svc.Checker), svc.Checker)
	registerClaimRoutes(api, handlers.NewClaimHandler(svc.Claims), svc.RateStore, cfg.Staff.RateLimit)
	registerBoothRoutes(api, handlers.NewBoothHandler(svc.Checker))

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
