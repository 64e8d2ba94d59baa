package models

import (
	"time"

	"gorm.io/datatypes"
)

// Message is one inbound callback as received from the gateway
type Message struct {
	ID         uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	FromNumber string            `json:"from_number" gorm:"column:from_number;not null"`
	ToNumber   string            `json:"to_number" gorm:"column:to_number;not null;default:''"`
	Body       string            `json:"body" gorm:"column:body;type:text;not null;default:''"`
	MediaURL   *string           `json:"media_url" gorm:"column:media_url;type:text"`
	RawPayload datatypes.JSONMap `json:"raw_payload" gorm:"column:raw_payload"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at;autoCreateTime;index:idx_messages_seen_created,priority:2"`
	Seen       bool              `json:"seen" gorm:"column:seen;not null;default:false;index:idx_messages_seen_created,priority:1"`
}

// TableName pins the table name
func (Message) TableName() string {
	return "messages"
}

// InboxMessage is an unseen message joined with its sender's onboarding preferences
type InboxMessage struct {
	ID         uint      `json:"id"`
	FromNumber string    `json:"from_number"`
	ToNumber   string    `json:"to_number"`
	Body       string    `json:"body"`
	MediaURL   *string   `json:"media_url"`
	CreatedAt  time.Time `json:"created_at"`
	Seen       bool      `json:"seen"`
	Language   *string   `json:"language"`
	State      *string   `json:"state"`
}
