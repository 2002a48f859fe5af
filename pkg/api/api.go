package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"sigs.k8s.io/external-dns/provider"

	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
)

// Api is the webhook server surface. Test proxies fiber's in-process request
// testing for the handler tests.
type Api interface {
	Listen(port string) error
	Test(req *http.Request, msTimeout ...int) (resp *http.Response, err error)
}

type api struct {
	logger *zap.Logger
	app    *fiber.App
}

// webhook carries the provider behind the external-dns webhook routes.
type webhook struct {
	provider provider.Provider
	logger   *zap.Logger
}

func (a api) Test(req *http.Request, msTimeout ...int) (resp *http.Response, err error) {
	return a.app.Test(req, msTimeout...)
}

func (a api) Listen(address string) error {
	go func() {
		listenAddress := address

		// "localhost:port" binds to all interfaces; a bare port gets a colon.
		if strings.HasPrefix(address, "localhost:") {
			listenAddress = ":" + strings.Split(address, ":")[1]
			a.logger.Info("Changed listen address from localhost to all interfaces",
				zap.String("original", address),
				zap.String("new", listenAddress))
		} else if !strings.Contains(address, ":") {
			listenAddress = ":" + address
		}

		a.logger.Debug("Starting server", zap.String("address", listenAddress))
		if err := a.app.Listen(listenAddress); err != nil {
			a.logger.Fatal("Error starting the server", zap.String("error", err.Error()))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh

	a.logger.Info(
		"shutting down server due to received signal",
		zap.String("signal", sig.String()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := a.app.ShutdownWithContext(ctx)
	if err != nil {
		a.logger.Error("error shutting down server", zap.String("error", err.Error()))
	}

	cancel()

	return err
}

// New builds the webhook server exposing the external-dns webhook contract
// on top of the given provider.
func New(logger *zap.Logger, dnsProvider provider.Provider) Api {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Error("Unhandled error in request",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()))

			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Public health endpoint (no auth required)
	app.Get("/healthz", Health)

	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(pprof.New(pprof.Config{Prefix: "/pprof"}))
	app.Use(fiberrecover.New())
	app.Use(helmet.New())

	webhookRoutes := webhook{
		provider: dnsProvider,
		logger:   logger,
	}

	apiGroup := app.Group("/")

	apiGroup.Get("/", webhookRoutes.GetDomainFilter)
	apiGroup.Get("/records", webhookRoutes.Records)
	apiGroup.Post("/records", webhookRoutes.ApplyChanges)
	apiGroup.Post("/adjustendpoints", webhookRoutes.AdjustEndpointsHandler)

	// Compatibility route for older ExternalDNS releases
	apiGroup.Get("/webhook", webhookRoutes.GetDomainFilter)

	return &api{
		logger: logger,
		app:    app,
	}
}
