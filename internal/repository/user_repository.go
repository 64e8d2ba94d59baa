package repository

import (
	"context"
	"errors"

	"whatsapp-intake/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPreferencesNotApplied is returned when the row is missing or already registered
var ErrPreferencesNotApplied = errors.New("preferences not applied")

type UserRepository interface {
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	EnsureUser(ctx context.Context, phone string) (bool, error)
	SetPreferences(ctx context.Context, phone, language, state string) error
	Count(ctx context.Context) (int64, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByPhone returns nil, nil when the sender is unknown
func (r *GormUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("phone_number = ?", phone).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser inserts a pending row, tolerating a concurrent insert of the
// same sender. created is false when the row already existed.
func (r *GormUserRepository) EnsureUser(ctx context.Context, phone string) (bool, error) {
	user := models.User{PhoneNumber: phone}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).
		Create(&user)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetPreferences records both fields in one statement. A row that is
// already registered is left untouched.
func (r *GormUserRepository) SetPreferences(ctx context.Context, phone, language, state string) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("phone_number = ? AND (language IS NULL OR state IS NULL)", phone).
		Updates(map[string]interface{}{
			"language": language,
			"state":    state,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPreferencesNotApplied
	}
	return nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}
