package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("health: resolve sql handle: %w", err)
	}
	r.GET("/health", handlers.Health(sqlDB))
	return nil
}
