package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/consultwire/consult-server/internal/config"
	"github.com/consultwire/consult-server/internal/core"
	"github.com/consultwire/consult-server/internal/store"
)

// NewServer builds the HTTP server: WebSocket endpoint, payment webhook and
// the REST routes.
func NewServer(hub *core.Hub, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	api := NewAPIHandlers(hub, st, cfg.Payments.SigningSecret, logger)
	router.POST("/webhooks/payment", api.PaymentWebhook)
	router.POST("/rooms", api.CreateRoom)
	router.GET("/rooms/:room_id/messages/new", api.NewMessages)
	router.GET("/payment-links", api.ListPaymentLinks)
	router.POST("/payment-links/delete", api.DeletePaymentLink)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
