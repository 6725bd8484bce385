package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	StatusReceived = "received"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// Message is one inbound or outbound chat message in the interaction log.
type Message struct {
	ID         string         `gorm:"size:36;primaryKey" json:"id"`
	ChatID     int64          `gorm:"not null;index" json:"chat_id"`
	Text       string         `gorm:"type:text" json:"text"`
	Direction  string         `gorm:"size:16;not null" json:"direction"`
	Status     string         `gorm:"size:16;not null" json:"status"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	UpdateData datatypes.JSON `json:"update_data,omitempty"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
}
