package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"usersbox-bot/internal/database"
	"usersbox-bot/internal/models"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := database.ConnectSQLite(filepath.Join(t.TempDir(), "journal.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("ConnectSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	j := New(db)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	j.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return j
}

func TestLogMessages(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	if err := j.LogIncoming(ctx, 1, "/start", []byte(`{"update_id":1}`)); err != nil {
		t.Fatalf("LogIncoming() error = %v", err)
	}
	if err := j.LogOutgoing(ctx, 1, "hello", nil); err != nil {
		t.Fatalf("LogOutgoing() error = %v", err)
	}
	if err := j.LogOutgoing(ctx, 1, "boom", errors.New("bad request")); err != nil {
		t.Fatalf("LogOutgoing() error = %v", err)
	}

	var msgs []models.Message
	if err := j.DB.Order("timestamp").Find(&msgs).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[0].Direction != models.DirectionIncoming || msgs[0].Status != models.StatusReceived || string(msgs[0].UpdateData) != `{"update_id":1}` {
		t.Fatalf("incoming row = %+v", msgs[0])
	}
	if msgs[1].Status != models.StatusSent || msgs[1].Error != "" {
		t.Fatalf("sent row = %+v", msgs[1])
	}
	if msgs[2].Status != models.StatusFailed || msgs[2].Error != "bad request" {
		t.Fatalf("failed row = %+v", msgs[2])
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Fatalf("ids not unique: %q %q", msgs[0].ID, msgs[1].ID)
	}
}

func TestStatsAndTopUsers(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	searches := map[int64]int{1: 1, 2: 4, 3: 2, 4: 3, 5: 1, 6: 5}
	for chat, n := range searches {
		for i := 0; i < n; i++ {
			if err := j.LogSearch(ctx, chat, "q", "q", i); err != nil {
				t.Fatalf("LogSearch() error = %v", err)
			}
		}
	}
	for i := 0; i < 12; i++ {
		if err := j.LogOutgoing(ctx, 1, "m", nil); err != nil {
			t.Fatalf("LogOutgoing() error = %v", err)
		}
	}
	j.DB.Create(&models.User{UserID: 1, ReferralCode: "AAAAAAAA"})
	j.DB.Create(&models.User{UserID: 2, ReferralCode: "BBBBBBBB"})
	j.DB.Create(&models.ReferralRecord{ID: "r1", ReferrerID: 1, ReferredID: 2, ReferralCode: "AAAAAAAA"})

	stats, err := j.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalSearches != 16 || stats.TotalMessages != 12 || stats.TotalUsers != 2 || stats.TotalReferrals != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if len(stats.RecentMessages) != RecentLimit || len(stats.RecentSearches) != RecentLimit {
		t.Fatalf("recent = %d/%d", len(stats.RecentMessages), len(stats.RecentSearches))
	}
	if !stats.RecentMessages[0].Timestamp.After(stats.RecentMessages[1].Timestamp) {
		t.Fatal("recent messages not newest first")
	}

	want := []TopUser{{6, 5}, {2, 4}, {4, 3}, {3, 2}, {1, 1}}
	if len(stats.TopUsers) != len(want) {
		t.Fatalf("top users = %+v", stats.TopUsers)
	}
	for i := range want {
		if stats.TopUsers[i] != want[i] {
			t.Fatalf("top users = %+v, want %+v", stats.TopUsers, want)
		}
	}
}

func TestListsOnEmptyDatabase(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	users, err := j.Users(ctx)
	if err != nil || users == nil || len(users) != 0 {
		t.Fatalf("Users() = %v, %v", users, err)
	}
	refs, err := j.Referrals(ctx)
	if err != nil || refs == nil || len(refs) != 0 {
		t.Fatalf("Referrals() = %v, %v", refs, err)
	}
	stats, err := j.Stats(ctx)
	if err != nil || stats.TopUsers == nil {
		t.Fatalf("Stats() = %+v, %v", stats, err)
	}
}
