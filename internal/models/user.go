package models

import (
	"time"
)

// User is the quota profile of one Telegram chat.
type User struct {
	UserID         int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username       string    `gorm:"size:255" json:"username"`
	DisplayName    string    `gorm:"size:255" json:"display_name"`
	ReferralCode   string    `gorm:"size:8;uniqueIndex;not null" json:"referral_code"`
	FreeAttempts   int       `gorm:"not null;default:0" json:"free_attempts"`
	TotalSearches  int       `gorm:"not null;default:0" json:"total_searches"`
	TotalReferrals int       `gorm:"not null;default:0" json:"total_referrals"`
	ReferredBy     *int64    `gorm:"index" json:"referred_by"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
}
