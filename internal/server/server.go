// Package server exposes the Telegram webhook and the operator endpoints.
package server

import (
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"usersbox-bot/internal/config"
)

type Controller interface {
	RegisterRoutes(router *gin.Engine)
}

// NewRouter builds the gin engine with the shared middleware chain.
func NewRouter(log *zap.Logger, controllers ...Controller) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	// The webhook allow-list must see the socket address, not a forwarded header.
	_ = router.SetTrustedProxies(nil)

	router.Use(RecoveryLogger(log))
	router.Use(RequestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"*"},
	}))

	for _, controller := range controllers {
		controller.RegisterRoutes(router)
	}
	return router
}

func NewHTTPServer(cfg *config.HTTPConfig, log *zap.Logger, controllers ...Controller) *http.Server {
	return &http.Server{
		Handler:           NewRouter(log, controllers...),
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
