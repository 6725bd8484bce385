package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"usersbox-bot/internal/ledger"
	"usersbox-bot/internal/metrics"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/render"
	"usersbox-bot/internal/usersbox"
)

// Provider is the lookup provider API.
type Provider interface {
	GetAppInfo(ctx context.Context) (*usersbox.AppInfoResponse, error)
	ListSources(ctx context.Context) (*usersbox.SourcesResponse, error)
	Explain(ctx context.Context, q string) (*usersbox.ExplainResponse, error)
	Search(ctx context.Context, q string) (*usersbox.SearchResponse, error)
}

// Quota is the subset of the ledger the dispatcher needs.
type Quota interface {
	GetOrCreate(ctx context.Context, userID int64, hints ledger.Hints) (*models.User, error)
	Get(ctx context.Context, userID int64) (*models.User, error)
	TryDebitAttempt(ctx context.Context, userID int64) (bool, error)
	ApplyReferralCode(ctx context.Context, userID int64, code string) (ledger.ReferralOutcome, *models.User, error)
	ReferralCount(ctx context.Context, userID int64) (int64, error)
}

// Sender delivers one Markdown message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type SearchLog interface {
	LogSearch(ctx context.Context, chatID int64, query, originalQuery string, results int) error
}

// Identity resolves the bot's public username for referral links.
type Identity interface {
	Username(ctx context.Context) (string, error)
}

// Incoming is the part of a Telegram update the dispatcher works with.
type Incoming struct {
	ChatID    int64
	Text      string
	Username  string
	FirstName string
}

type Bot struct {
	Quota    Quota
	Provider Provider
	Sender   Sender
	Searches SearchLog
	Identity Identity
	Log      *zap.Logger
}

func New(quota Quota, provider Provider, sender Sender, searches SearchLog, identity Identity, log *zap.Logger) *Bot {
	return &Bot{
		Quota:    quota,
		Provider: provider,
		Sender:   sender,
		Searches: searches,
		Identity: identity,
		Log:      log.Named("bot"),
	}
}

// Dispatch handles one chat message. Every user-facing failure is turned into
// a reply; the returned error only reports what could not be answered.
func (b *Bot) Dispatch(ctx context.Context, in Incoming) error {
	cmd := ParseCommand(in.Text)
	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String()).Inc()

	log := b.Log.With(zap.Int64("chat_id", in.ChatID), zap.Stringer("command", cmd.Kind))
	log.Debug("dispatching message")

	user, err := b.loadUser(ctx, in, cmd.Kind)
	if err != nil {
		log.Error("failed to load profile", zap.Error(err))
		b.reply(ctx, in.ChatID, render.InternalError)
		return fmt.Errorf("get or create user %d: %w", in.ChatID, err)
	}

	switch cmd.Kind {
	case CommandStart:
		return b.handleStart(ctx, user, cmd.Arg)
	case CommandSources:
		return b.handleSources(ctx, in.ChatID)
	case CommandBalance:
		return b.handleBalance(ctx, in.ChatID)
	case CommandHelp:
		b.reply(ctx, in.ChatID, render.Help)
		return nil
	case CommandProfile:
		return b.handleProfile(ctx, user)
	case CommandReferral:
		return b.handleReferral(ctx, user)
	case CommandInvite:
		return b.handleInvite(ctx, user, cmd.Arg)
	default:
		return b.handleSearch(ctx, user, cmd.Arg)
	}
}

// loadUser fetches the sender's profile. Read-only commands leave an existing
// profile untouched; everything else goes through GetOrCreate.
func (b *Bot) loadUser(ctx context.Context, in Incoming, kind CommandKind) (*models.User, error) {
	if kind == CommandProfile || kind == CommandReferral {
		user, err := b.Quota.Get(ctx, in.ChatID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ledger.ErrUserNotFound) {
			return nil, err
		}
	}
	return b.Quota.GetOrCreate(ctx, in.ChatID, ledger.Hints{Username: in.Username, DisplayName: in.FirstName})
}

// reply sends text and swallows delivery failures: the sender has already
// journaled the outcome and there is nobody left to tell.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.Sender.Send(ctx, chatID, text); err != nil {
		b.Log.Warn("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
