package models

import (
	"time"
)

// ReferralRecord is written once per credited referral.
type ReferralRecord struct {
	ID           string    `gorm:"size:36;primaryKey" json:"id"`
	ReferrerID   int64     `gorm:"not null;index" json:"referrer_id"`
	ReferredID   int64     `gorm:"not null;uniqueIndex" json:"referred_id"`
	ReferralCode string    `gorm:"size:8;not null" json:"referral_code"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
}
