package models

import "time"

// UserToken represents the user_tokens table. Reset tokens are stored hashed;
// the raw value only ever travels in the email link.
type UserToken struct {
	TokenID   int       `gorm:"primaryKey;column:token_id" json:"token_id"`
	UserID    int       `gorm:"column:user_id" json:"user_id"`
	TokenType string    `gorm:"column:token_type" json:"token_type"`
	Token     string    `gorm:"column:token" json:"-"`
	ExpiresAt time.Time `gorm:"column:expires_at" json:"expires_at"`
	IsRevoked bool      `gorm:"column:is_revoked" json:"is_revoked"`
	IPAddress string    `gorm:"column:ip_address" json:"-"`
	UserAgent string    `gorm:"column:user_agent" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (UserToken) TableName() string { return "user_tokens" }
