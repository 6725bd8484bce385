// Package ledger owns the per-user search quota: free attempts, search and
// referral counters and the one-way referral link. All counter mutations are
// single conditional UPDATE statements so concurrent webhook deliveries for
// the same chat cannot overdraw or double-credit a profile.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"usersbox-bot/internal/models"
)

const (
	DefaultFreeAttempts = 1
	ReferralCodeLength  = 8

	// Referral codes come from a uuid prefix; collisions are rare but possible.
	maxCodeAttempts = 5
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique referral code")
)

// ReferralOutcome is the result of ApplyReferralCode.
type ReferralOutcome int

const (
	ReferralApplied ReferralOutcome = iota
	ReferralAlreadyReferred
	ReferralInvalidCode
	ReferralSelf
)

func (o ReferralOutcome) String() string {
	switch o {
	case ReferralApplied:
		return "applied"
	case ReferralAlreadyReferred:
		return "already_referred"
	case ReferralInvalidCode:
		return "invalid_code"
	case ReferralSelf:
		return "self_referral"
	}
	return "unknown"
}

// Hints are the last-seen display fields of a Telegram user.
type Hints struct {
	Username    string
	DisplayName string
}

type Ledger struct {
	DB           *gorm.DB
	Log          *zap.Logger
	FreeAttempts int

	now     func() time.Time
	newCode func() string
}

func New(db *gorm.DB, freeAttempts int, log *zap.Logger) *Ledger {
	return &Ledger{
		DB:           db,
		Log:          log.Named("ledger"),
		FreeAttempts: freeAttempts,
		now:          func() time.Time { return time.Now().UTC() },
		newCode:      NewReferralCode,
	}
}

// NewReferralCode returns an 8-character upper-case hex code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:ReferralCodeLength])
}

// GetOrCreate returns the profile for userID, creating it with the configured
// free attempts on first contact. For an existing profile only last_activity
// and the display hints are touched.
func (l *Ledger) GetOrCreate(ctx context.Context, userID int64, hints Hints) (*models.User, error) {
	db := l.DB.WithContext(ctx)
	now := l.now()

	var user models.User
	err := db.Where("user_id = ?", userID).First(&user).Error
	if err == nil {
		if err := l.touch(db, &user, hints, now); err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	for i := 0; i < maxCodeAttempts; i++ {
		user = models.User{
			UserID:       userID,
			Username:     hints.Username,
			DisplayName:  hints.DisplayName,
			ReferralCode: l.newCode(),
			FreeAttempts: l.FreeAttempts,
			CreatedAt:    now,
			LastActivity: now,
		}
		// DO NOTHING covers both a concurrent first contact (user_id) and a
		// referral code collision; the follow-up read tells them apart.
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", userID, res.Error)
		}
		if res.RowsAffected == 1 {
			l.Log.Info("user profile created",
				zap.Int64("user_id", userID),
				zap.String("referral_code", user.ReferralCode),
			)
			return &user, nil
		}

		var existing models.User
		err := db.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			if err := l.touch(db, &existing, hints, now); err != nil {
				return nil, err
			}
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		l.Log.Warn("referral code collision, retrying", zap.Int64("user_id", userID))
	}
	return nil, ErrCodeSpaceExhausted
}

func (l *Ledger) touch(db *gorm.DB, user *models.User, hints Hints, now time.Time) error {
	err := db.Model(&models.User{}).Where("user_id = ?", user.UserID).Updates(map[string]any{
		"username":      hints.Username,
		"display_name":  hints.DisplayName,
		"last_activity": now,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update user %d activity: %w", user.UserID, err)
	}
	user.Username = hints.Username
	user.DisplayName = hints.DisplayName
	user.LastActivity = now
	return nil
}

// Get returns the stored profile without touching it.
func (l *Ledger) Get(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := l.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return &user, nil
}

// TryDebitAttempt spends one free attempt. It reports false, without changing
// anything, when the user has no attempts left or does not exist.
func (l *Ledger) TryDebitAttempt(ctx context.Context, userID int64) (bool, error) {
	res := l.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ? AND free_attempts > 0", userID).
		Updates(map[string]any{
			"free_attempts":  gorm.Expr("free_attempts - 1"),
			"total_searches": gorm.Expr("total_searches + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to debit attempt for user %d: %w", userID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CreditReferral grants the referrer one attempt and counts the referral.
// A missing referrer is logged and ignored.
func (l *Ledger) CreditReferral(ctx context.Context, referrerID int64) error {
	return l.creditReferral(l.DB.WithContext(ctx), referrerID)
}

func (l *Ledger) creditReferral(db *gorm.DB, referrerID int64) error {
	res := db.Model(&models.User{}).
		Where("user_id = ?", referrerID).
		Updates(map[string]any{
			"free_attempts":   gorm.Expr("free_attempts + 1"),
			"total_referrals": gorm.Expr("total_referrals + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to credit referrer %d: %w", referrerID, res.Error)
	}
	if res.RowsAffected == 0 {
		l.Log.Warn("referral credit for unknown user", zap.Int64("referrer_id", referrerID))
	}
	return nil
}

// ApplyReferralCode links userID to the owner of code and credits the owner.
// The link, the credit and the ReferralRecord are written in one transaction.
// On success the referrer is returned so callers can notify them.
func (l *Ledger) ApplyReferralCode(ctx context.Context, userID int64, code string) (ReferralOutcome, *models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	outcome := ReferralInvalidCode
	var referrer models.User

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.Where("user_id = ?", userID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		if target.ReferredBy != nil {
			outcome = ReferralAlreadyReferred
			return nil
		}

		if code == "" {
			outcome = ReferralInvalidCode
			return nil
		}
		if err := tx.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ReferralInvalidCode
				return nil
			}
			return fmt.Errorf("failed to look up referral code: %w", err)
		}
		if referrer.UserID == userID {
			outcome = ReferralSelf
			return nil
		}

		res := tx.Model(&models.User{}).
			Where("user_id = ? AND referred_by IS NULL", userID).
			Update("referred_by", referrer.UserID)
		if res.Error != nil {
			return fmt.Errorf("failed to link referral: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			outcome = ReferralAlreadyReferred
			return nil
		}

		if err := l.creditReferral(tx, referrer.UserID); err != nil {
			return err
		}

		record := models.ReferralRecord{
			ID:           uuid.NewString(),
			ReferrerID:   referrer.UserID,
			ReferredID:   userID,
			ReferralCode: code,
			Timestamp:    l.now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record referral: %w", err)
		}

		outcome = ReferralApplied
		return nil
	})
	if err != nil {
		return ReferralInvalidCode, nil, err
	}

	if outcome != ReferralApplied {
		return outcome, nil, nil
	}
	referrer.FreeAttempts++
	referrer.TotalReferrals++
	l.Log.Info("referral applied",
		zap.Int64("referrer_id", referrer.UserID),
		zap.Int64("referred_id", userID),
	)
	return outcome, &referrer, nil
}

// ReferralCount returns how many users were referred by userID.
func (l *Ledger) ReferralCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := l.DB.WithContext(ctx).Model(&models.ReferralRecord{}).Where("referrer_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals for %d: %w", userID, err)
	}
	return count, nil
}
