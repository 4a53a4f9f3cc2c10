package http

import (
	"context"
	"net/http"

	"github.com/doinghun/merlabot-public/internal/bot"
	"github.com/doinghun/merlabot-public/internal/config"
	"github.com/doinghun/merlabot-public/internal/http/middleware"
	"github.com/doinghun/merlabot-public/internal/metrics"
	"github.com/doinghun/merlabot-public/internal/repository"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct{ e *echo.Echo }

// NewServer wires the webhook surface. deliveries may be nil when ClickHouse
// is not configured; the reports route is simply not registered then.
func NewServer(cfg config.Config, b *bot.Bot, deliveries repository.DeliveriesRepository) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello world, I am a chat bot")
	})

	// static assets referenced by gif directives
	if cfg.HTTP.AssetsDir != "" {
		e.Static("/assets", cfg.HTTP.AssetsDir)
	}

	// webhook
	e.GET("/webhook", verifyWebhookHandler(cfg.Messenger.VerifyToken))
	e.POST("/webhook", eventsHandler(b), middleware.VerifySignature(cfg.Messenger.AppSecret))

	// operator reports
	if deliveries != nil {
		v1 := e.Group("/v1", middleware.AdminTokenMiddleware(cfg.Admin.Token))
		v1.GET("/reports/deliveries", listDeliveriesHandler(deliveries))
	}

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
