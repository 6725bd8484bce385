package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/metrics"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/query"
	"usersbox-bot/internal/render"
	"usersbox-bot/internal/usersbox"
)

func (b *Bot) handleStart(ctx context.Context, user *models.User, code string) error {
	if code != "" {
		if err := b.applyReferral(ctx, user, code, false); err != nil {
			return err
		}
	}

	b.reply(ctx, user.UserID, render.Welcome(user))
	return nil
}

func (b *Bot) handleInvite(ctx context.Context, user *models.User, code string) error {
	if strings.TrimSpace(code) == "" {
		b.reply(ctx, user.UserID, render.InviteUsage)
		return nil
	}
	return b.applyReferral(ctx, user, code, true)
}

// applyReferral runs the ledger operation and tells both sides about the
// result. Rejections are only reported when verbose is set, so a stale
// /start deep link does not nag a returning user.
func (b *Bot) applyReferral(ctx context.Context, user *models.User, code string, verbose bool) error {
	outcome, referrer, err := b.Quota.ApplyReferralCode(ctx, user.UserID, code)
	if err != nil {
		b.Log.Error("failed to apply referral code", zap.Int64("chat_id", user.UserID), zap.Error(err))
		b.reply(ctx, user.UserID, render.InternalError)
		return fmt.Errorf("apply referral for %d: %w", user.UserID, err)
	}

	b.Log.Info("referral code processed",
		zap.Int64("chat_id", user.UserID),
		zap.String("code", code),
		zap.Stringer("outcome", outcome),
	)

	switch outcome {
	case ledger.ReferralApplied:
		b.reply(ctx, user.UserID, render.ReferralApplied(user.FreeAttempts))
		if referrer != nil {
			b.reply(ctx, referrer.UserID, render.ReferrerCredited(referrer.FreeAttempts))
		}
	case ledger.ReferralAlreadyReferred:
		if verbose {
			b.reply(ctx, user.UserID, render.AlreadyReferred)
		}
	case ledger.ReferralSelf:
		if verbose {
			b.reply(ctx, user.UserID, render.SelfReferral)
		}
	default:
		b.reply(ctx, user.UserID, render.InvalidCode)
	}
	return nil
}

// handleSearch debits one attempt before asking the provider. The attempt is
// not refunded when nothing is found.
func (b *Bot) handleSearch(ctx context.Context, user *models.User, raw string) error {
	chatID := user.UserID
	log := b.Log.With(zap.Int64("chat_id", chatID))

	normalized := query.Normalize(raw)
	if normalized == "" {
		metrics.SearchesTotal.WithLabelValues("empty_query").Inc()
		b.reply(ctx, chatID, render.EmptyQuery)
		return nil
	}

	if user.FreeAttempts <= 0 {
		metrics.SearchesTotal.WithLabelValues("no_attempts").Inc()
		b.reply(ctx, chatID, render.NoAttempts(user.ReferralCode))
		return nil
	}

	ok, err := b.Quota.TryDebitAttempt(ctx, chatID)
	if err != nil {
		log.Error("failed to debit attempt", zap.Error(err))
		b.reply(ctx, chatID, render.DebitFailed)
		return fmt.Errorf("debit attempt for %d: %w", chatID, err)
	}
	if !ok {
		metrics.SearchesTotal.WithLabelValues("debit_race").Inc()
		b.reply(ctx, chatID, render.DebitFailed)
		return nil
	}
	attemptsLeft := user.FreeAttempts - 1

	b.reply(ctx, chatID, render.Searching(normalized))

	explain, err := b.Provider.Explain(ctx, normalized)
	if err != nil {
		return b.searchFailed(ctx, chatID, normalized, raw, err)
	}
	total := explain.Data.Count
	if total == 0 {
		metrics.SearchesTotal.WithLabelValues("not_found").Inc()
		b.reply(ctx, chatID, render.NotFound(normalized))
		b.logSearch(ctx, chatID, normalized, raw, 0)
		return nil
	}

	result, err := b.Provider.Search(ctx, normalized)
	if err != nil {
		return b.searchFailed(ctx, chatID, normalized, raw, err)
	}
	if result.Status != usersbox.StatusSuccess || result.Data.Count == 0 {
		metrics.SearchesTotal.WithLabelValues("not_found").Inc()
		b.reply(ctx, chatID, render.NotFound(normalized))
		b.logSearch(ctx, chatID, normalized, raw, 0)
		return nil
	}

	for _, part := range render.SearchResults(total, result.Data, render.Quota{AttemptsLeft: attemptsLeft}) {
		b.reply(ctx, chatID, part)
	}
	metrics.SearchesTotal.WithLabelValues("found").Inc()
	b.logSearch(ctx, chatID, normalized, raw, total)
	return nil
}

func (b *Bot) searchFailed(ctx context.Context, chatID int64, normalized, raw string, err error) error {
	metrics.SearchesTotal.WithLabelValues("provider_error").Inc()
	b.Log.Warn("search failed",
		zap.Int64("chat_id", chatID),
		zap.String("query", normalized),
		zap.String("original_query", raw),
		zap.Int("status", usersbox.StatusCode(err)),
		zap.Error(err),
	)
	b.reply(ctx, chatID, render.SearchError(err))
	return nil
}

func (b *Bot) logSearch(ctx context.Context, chatID int64, normalized, raw string, results int) {
	if err := b.Searches.LogSearch(ctx, chatID, normalized, raw, results); err != nil {
		b.Log.Warn("failed to log search", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleSources(ctx context.Context, chatID int64) error {
	resp, err := b.Provider.ListSources(ctx)
	if err != nil {
		b.Log.Warn("failed to list sources", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(ctx, chatID, render.SourcesFailed)
		return nil
	}
	if resp.Status != usersbox.StatusSuccess {
		b.reply(ctx, chatID, render.SourcesFailed)
		return nil
	}
	b.reply(ctx, chatID, render.Sources(resp.Data))
	return nil
}

func (b *Bot) handleBalance(ctx context.Context, chatID int64) error {
	resp, err := b.Provider.GetAppInfo(ctx)
	if err != nil {
		b.Log.Warn("failed to get app info", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(ctx, chatID, render.BalanceFailed)
		return nil
	}
	if resp.Status != usersbox.StatusSuccess {
		b.reply(ctx, chatID, render.BalanceFailed)
		return nil
	}
	b.reply(ctx, chatID, render.Balance(resp.Data))
	return nil
}

func (b *Bot) handleProfile(ctx context.Context, user *models.User) error {
	count, err := b.Quota.ReferralCount(ctx, user.UserID)
	if err != nil {
		b.Log.Warn("failed to count referrals", zap.Int64("chat_id", user.UserID), zap.Error(err))
		count = int64(user.TotalReferrals)
	}
	b.reply(ctx, user.UserID, render.Profile(user, count))
	return nil
}

func (b *Bot) handleReferral(ctx context.Context, user *models.User) error {
	count, err := b.Quota.ReferralCount(ctx, user.UserID)
	if err != nil {
		b.Log.Warn("failed to count referrals", zap.Int64("chat_id", user.UserID), zap.Error(err))
		count = int64(user.TotalReferrals)
	}

	link := ""
	if b.Identity != nil {
		if name, err := b.Identity.Username(ctx); err == nil && name != "" {
			link = fmt.Sprintf("https://t.me/%s?start=%s", name, user.ReferralCode)
		} else if err != nil {
			b.Log.Warn("failed to resolve bot username", zap.Error(err))
		}
	}

	b.reply(ctx, user.UserID, render.Referral(user, link, count))
	return nil
}
