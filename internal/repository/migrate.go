package repository

import (
	"fmt"

	"whatsapp-intake/backend/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the users and messages tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
