package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"usersbox-bot/internal/bot"
	"usersbox-bot/internal/metrics"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, in bot.Incoming) error
}

type IncomingLog interface {
	LogIncoming(ctx context.Context, chatID int64, text string, update []byte) error
}

// UpdateGuard filters Telegram redeliveries.
type UpdateGuard interface {
	FirstSeen(ctx context.Context, updateID int) (bool, error)
}

type WebhookController struct {
	Dispatcher Dispatcher
	Journal    IncomingLog
	// Guard is optional.
	Guard    UpdateGuard
	Secret   string
	Prefixes []netip.Prefix
	Log      *zap.Logger
}

func NewWebhookController(dispatcher Dispatcher, journal IncomingLog, guard UpdateGuard, secret string, prefixes []netip.Prefix, log *zap.Logger) *WebhookController {
	return &WebhookController{
		Dispatcher: dispatcher,
		Journal:    journal,
		Guard:      guard,
		Secret:     secret,
		Prefixes:   prefixes,
		Log:        log.Named("webhook"),
	}
}

func (c *WebhookController) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/webhook",
		AllowPrefixes(c.Prefixes, c.Log),
		SecretToken(c.Secret, c.Log),
		c.handleWebhook,
	)
}

// handleWebhook always answers 200 so Telegram does not retry a delivery the
// bot has already acted on.
func (c *WebhookController) handleWebhook(ctx *gin.Context) {
	// Work started for an update runs to completion even if Telegram hangs up.
	reqCtx := context.WithoutCancel(ctx.Request.Context())

	raw, err := ctx.GetRawData()
	if err != nil {
		c.fail(ctx, "read_error", "failed to read body", err)
		return
	}

	var update telego.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		c.fail(ctx, "bad_payload", "invalid update payload", err)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat.ID == 0 || msg.Text == "" {
		metrics.WebhookUpdatesTotal.WithLabelValues("ignored").Inc()
		c.Log.Debug("ignoring update without chat text", zap.Int("update_id", update.UpdateID))
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if c.Guard != nil {
		first, err := c.Guard.FirstSeen(reqCtx, update.UpdateID)
		if err != nil {
			// Redis trouble must not block the bot.
			c.Log.Warn("update dedupe unavailable", zap.Int("update_id", update.UpdateID), zap.Error(err))
		} else if !first {
			metrics.WebhookUpdatesTotal.WithLabelValues("duplicate").Inc()
			c.Log.Info("duplicate update skipped", zap.Int("update_id", update.UpdateID))
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
	}

	in := bot.Incoming{ChatID: msg.Chat.ID, Text: msg.Text}
	if msg.From != nil {
		in.Username = msg.From.Username
		in.FirstName = msg.From.FirstName
	}

	c.Log.Debug("received webhook update",
		zap.Int("update_id", update.UpdateID),
		zap.Int64("chat_id", in.ChatID),
	)

	if err := c.Journal.LogIncoming(reqCtx, in.ChatID, in.Text, raw); err != nil {
		c.Log.Error("failed to log incoming message", zap.Int64("chat_id", in.ChatID), zap.Error(err))
	}

	if err := c.Dispatcher.Dispatch(reqCtx, in); err != nil {
		c.fail(ctx, "dispatch_error", err.Error(), err)
		return
	}

	metrics.WebhookUpdatesTotal.WithLabelValues("ok").Inc()
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (c *WebhookController) fail(ctx *gin.Context, result, message string, err error) {
	metrics.WebhookUpdatesTotal.WithLabelValues(result).Inc()
	c.Log.Error("webhook handling failed", zap.String("result", result), zap.Error(err))
	ctx.JSON(http.StatusOK, gin.H{"status": "error", "message": message})
}
