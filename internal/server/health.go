package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	DB  Pinger
	Log *zap.Logger
}

func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", c.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// health also pings the database.
func (c *HealthController) health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := c.DB.PingContext(pingCtx); err != nil {
		c.Log.Error("database not ready", zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  "database unavailable",
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
