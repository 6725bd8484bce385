package models

import (
	"time"
)

type SearchRecord struct {
	ID            string    `gorm:"size:36;primaryKey" json:"id"`
	ChatID        int64     `gorm:"not null;index" json:"chat_id"`
	Query         string    `gorm:"size:512;not null" json:"query"`
	OriginalQuery string    `gorm:"type:text" json:"original_query"`
	ResultsCount  int       `gorm:"not null" json:"results_count"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
}

// All returns every model managed by migrations.
func All() []any {
	return []any{&User{}, &ReferralRecord{}, &Message{}, &SearchRecord{}}
}
