package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"usersbox-bot/internal/journal"
	"usersbox-bot/internal/models"
	"usersbox-bot/internal/usersbox"
)

type StatsSource interface {
	Stats(ctx context.Context) (*journal.Stats, error)
	Users(ctx context.Context) ([]models.User, error)
	Referrals(ctx context.Context) ([]models.ReferralRecord, error)
}

type AppInfoProvider interface {
	GetAppInfo(ctx context.Context) (*usersbox.AppInfoResponse, error)
}

type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, url, secret string) error
}

// APIController serves the read-only operator endpoints and a few
// maintenance actions.
type APIController struct {
	Stats         StatsSource
	Provider      AppInfoProvider
	Registrar     WebhookRegistrar
	WebhookURL    string
	WebhookSecret string
	Log           *zap.Logger
}

func (c *APIController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/", c.root)
	api.GET("/stats", c.stats)
	api.GET("/users", c.users)
	api.GET("/referrals", c.referrals)
	api.POST("/test-provider", c.testProvider)
	api.POST("/set-webhook", c.setWebhook)
}

func (c *APIController) root(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Usersbox search bot API",
		"status":  "running",
	})
}

func (c *APIController) stats(ctx *gin.Context) {
	stats, err := c.Stats.Stats(ctx.Request.Context())
	if err != nil {
		c.internalError(ctx, "failed to collect stats", err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *APIController) users(ctx *gin.Context) {
	users, err := c.Stats.Users(ctx.Request.Context())
	if err != nil {
		c.internalError(ctx, "failed to list users", err)
		return
	}
	ctx.JSON(http.StatusOK, users)
}

func (c *APIController) referrals(ctx *gin.Context) {
	refs, err := c.Stats.Referrals(ctx.Request.Context())
	if err != nil {
		c.internalError(ctx, "failed to list referrals", err)
		return
	}
	ctx.JSON(http.StatusOK, refs)
}

// testProvider is a connectivity check against the provider's getMe.
func (c *APIController) testProvider(ctx *gin.Context) {
	info, err := c.Provider.GetAppInfo(ctx.Request.Context())
	if err != nil {
		c.Log.Warn("provider check failed", zap.Error(err))
		ctx.JSON(http.StatusOK, gin.H{
			"status":      "error",
			"message":     err.Error(),
			"status_code": usersbox.StatusCode(err),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success", "data": info})
}

func (c *APIController) setWebhook(ctx *gin.Context) {
	if c.WebhookURL == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "webhook url is not configured"})
		return
	}
	if err := c.Registrar.SetWebhook(ctx.Request.Context(), c.WebhookURL, c.WebhookSecret); err != nil {
		c.internalError(ctx, "failed to set webhook", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "success", "webhook_url": c.WebhookURL})
}

func (c *APIController) internalError(ctx *gin.Context, message string, err error) {
	c.Log.Error(message, zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": message})
}
