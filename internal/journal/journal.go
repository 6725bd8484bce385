// Package journal is the append-only interaction log (messages and searches)
// and the read side used by the operator statistics endpoints.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"usersbox-bot/internal/models"
)

type Journal struct {
	DB  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Journal {
	return &Journal{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// LogIncoming records an inbound chat message together with the raw update.
func (j *Journal) LogIncoming(ctx context.Context, chatID int64, text string, update []byte) error {
	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Text:      text,
		Direction: models.DirectionIncoming,
		Status:    models.StatusReceived,
		Timestamp: j.now(),
	}
	if len(update) > 0 {
		msg.UpdateData = datatypes.JSON(update)
	}
	if err := j.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to log incoming message: %w", err)
	}
	return nil
}

// LogOutgoing records the outcome of one send attempt. sendErr is nil on success.
func (j *Journal) LogOutgoing(ctx context.Context, chatID int64, text string, sendErr error) error {
	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Text:      text,
		Direction: models.DirectionOutgoing,
		Status:    models.StatusSent,
		Timestamp: j.now(),
	}
	if sendErr != nil {
		msg.Status = models.StatusFailed
		msg.Error = sendErr.Error()
	}
	if err := j.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to log outgoing message: %w", err)
	}
	return nil
}

func (j *Journal) LogSearch(ctx context.Context, chatID int64, query, originalQuery string, results int) error {
	rec := models.SearchRecord{
		ID:            uuid.NewString(),
		ChatID:        chatID,
		Query:         query,
		OriginalQuery: originalQuery,
		ResultsCount:  results,
		Timestamp:     j.now(),
	}
	if err := j.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}
