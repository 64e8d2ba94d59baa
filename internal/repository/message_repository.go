package repository

import (
	"context"
	"errors"

	"whatsapp-intake/backend/internal/models"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListUnseen(ctx context.Context, limit int) ([]models.InboxMessage, error)
	MarkSeen(ctx context.Context, id uint) error
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).First(&message, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListUnseen returns the newest unseen messages, each joined with the
// sender's preferences when the sender is known.
func (r *GormMessageRepository) ListUnseen(ctx context.Context, limit int) ([]models.InboxMessage, error) {
	messages := make([]models.InboxMessage, 0, limit)
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.id AS id, m.from_number AS from_number, m.to_number AS to_number, m.body AS body, " +
			"m.media_url AS media_url, m.created_at AS created_at, m.seen AS seen, " +
			"u.language AS language, u.state AS state").
		Joins("LEFT JOIN users AS u ON u.phone_number = m.from_number").
		Where("m.seen = ?", false).
		Order("m.created_at DESC").
		Order("m.id DESC").
		Limit(limit).
		Scan(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkSeen flips the seen flag. Unknown or already-seen ids are not an error.
func (r *GormMessageRepository) MarkSeen(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Update("seen", true).Error
}
