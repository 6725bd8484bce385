// Package telegram wraps the Bot API client used for outgoing messages and
// webhook registration.
package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"usersbox-bot/internal/metrics"
)

// OutgoingLog records the outcome of every send attempt.
type OutgoingLog interface {
	LogOutgoing(ctx context.Context, chatID int64, text string, sendErr error) error
}

type Client struct {
	Instance *telego.Bot
	Journal  OutgoingLog
	Log      *zap.Logger

	mu       sync.Mutex
	username string
}

// NewClient creates the Bot API client. apiServer may be empty for the public
// Telegram endpoint.
func NewClient(token, apiServer string, journal OutgoingLog, log *zap.Logger) (*Client, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if apiServer != "" {
		opts = append(opts, telego.WithAPIServer(apiServer))
	}

	tgBot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Client{
		Instance: tgBot,
		Journal:  journal,
		Log:      log.Named("telegram"),
	}, nil
}

// Send delivers text in Markdown mode and journals the outcome.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	_, sendErr := c.Instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown))

	result := "ok"
	if sendErr != nil {
		result = "error"
		c.Log.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(sendErr))
	}
	metrics.MessagesSentTotal.WithLabelValues(result).Inc()

	if c.Journal != nil {
		if err := c.Journal.LogOutgoing(ctx, chatID, text, sendErr); err != nil {
			c.Log.Error("failed to journal outgoing message", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	if sendErr != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, sendErr)
	}
	return nil
}

// Username returns the bot's @username, asking the API once.
func (c *Client) Username(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.username != "" {
		return c.username, nil
	}

	me, err := c.Instance.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get bot info: %w", err)
	}
	c.username = me.Username
	return c.username, nil
}

// SetWebhook points Telegram at url. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	params := tu.Webhook(url).WithAllowedUpdates("message")
	if secret != "" {
		params = params.WithSecretToken(secret)
	}
	if err := c.Instance.SetWebhook(ctx, params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	c.Log.Info("webhook registered", zap.String("url", url))
	return nil
}

func (c *Client) WebhookInfo(ctx context.Context) (*telego.WebhookInfo, error) {
	info, err := c.Instance.GetWebhookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook info: %w", err)
	}
	return info, nil
}
