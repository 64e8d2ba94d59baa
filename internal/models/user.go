package models

import (
	"time"
)

// User is a sender known to the registry. Language and State stay nil until
// onboarding completes.
type User struct {
	PhoneNumber string    `json:"phone_number" gorm:"column:phone_number;primaryKey"`
	Language    *string   `json:"language" gorm:"column:language"`
	State       *string   `json:"state" gorm:"column:state"`
	JoinedAt    time.Time `json:"joined_at" gorm:"column:joined_at;autoCreateTime"`
}

// TableName pins the table name
func (User) TableName() string {
	return "users"
}

// IsRegistered reports whether both onboarding preferences are recorded
func (u *User) IsRegistered() bool {
	return u != nil && u.Language != nil && u.State != nil
}
