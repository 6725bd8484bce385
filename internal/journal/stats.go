package journal

import (
	"context"
	"fmt"

	"usersbox-bot/internal/models"
)

const (
	RecentLimit   = 10
	TopUsersLimit = 5
	ListLimit     = 50
)

type TopUser struct {
	ChatID   int64 `json:"chat_id"`
	Searches int64 `json:"searches"`
}

type Stats struct {
	TotalMessages  int64                 `json:"total_messages"`
	TotalSearches  int64                 `json:"total_searches"`
	TotalUsers     int64                 `json:"total_users"`
	TotalReferrals int64                 `json:"total_referrals"`
	RecentMessages []models.Message      `json:"recent_messages"`
	RecentSearches []models.SearchRecord `json:"recent_searches"`
	TopUsers       []TopUser             `json:"top_users"`
}

// Stats collects aggregate counters and the most recent log entries.
func (j *Journal) Stats(ctx context.Context) (*Stats, error) {
	db := j.DB.WithContext(ctx)
	stats := &Stats{
		RecentMessages: []models.Message{},
		RecentSearches: []models.SearchRecord{},
		TopUsers:       []TopUser{},
	}

	counts := []struct {
		model any
		dest  *int64
	}{
		{&models.Message{}, &stats.TotalMessages},
		{&models.SearchRecord{}, &stats.TotalSearches},
		{&models.User{}, &stats.TotalUsers},
		{&models.ReferralRecord{}, &stats.TotalReferrals},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %T: %w", c.model, err)
		}
	}

	if err := db.Omit("update_data").Order("timestamp desc").Limit(RecentLimit).Find(&stats.RecentMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	if err := db.Order("timestamp desc").Limit(RecentLimit).Find(&stats.RecentSearches).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent searches: %w", err)
	}

	top, err := j.TopUsers(ctx, TopUsersLimit)
	if err != nil {
		return nil, err
	}
	stats.TopUsers = top
	return stats, nil
}

// TopUsers groups search records by chat and returns the most active chats.
func (j *Journal) TopUsers(ctx context.Context, limit int) ([]TopUser, error) {
	top := []TopUser{}
	err := j.DB.WithContext(ctx).
		Model(&models.SearchRecord{}).
		Select("chat_id, COUNT(*) AS searches").
		Group("chat_id").
		Order("searches DESC, chat_id").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top users: %w", err)
	}
	return top, nil
}

func (j *Journal) Users(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := j.DB.WithContext(ctx).Order("created_at desc").Limit(ListLimit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (j *Journal) Referrals(ctx context.Context) ([]models.ReferralRecord, error) {
	referrals := []models.ReferralRecord{}
	if err := j.DB.WithContext(ctx).Order("timestamp desc").Limit(ListLimit).Find(&referrals).Error; err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return referrals, nil
}
