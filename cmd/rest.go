package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/AzielCF/az-aiwa/core/config"
	"github.com/AzielCF/az-aiwa/infrastructure/whatsapp"
	"github.com/AzielCF/az-aiwa/ui/rest"
	"github.com/AzielCF/az-aiwa/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the WhatsApp Cloud API webhook",
	Long:  `Start the HTTP server receiving WhatsApp Cloud API webhooks and answering them in the background.`,
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global
	if err := cfg.ValidateForServer(); err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := initApp(ctx, cfg)
	if err != nil {
		logrus.Fatalf("[APP] Failed to start: %v", err)
	}

	app := newFiberApp(cfg, application)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Errorf("[REST] Failed to start: %v", err)
	}

	// Listen returns once the server is shut down
	application.stop()
}

func newFiberApp(cfg *coreconfig.Config, application *application) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "az-aiwa",
		Network:               "tcp",
		ServerHeader:          "Hidden",
		DisableStartupMessage: !cfg.App.Debug,
	})

	// Security: RequestID for audit trails
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	// the webhook must always answer 200; Meta delivers from a handful of IPs
	webhookPath := cfg.App.BasePath + "/webhook"
	app.Use(limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.TrimSuffix(c.Path(), "/") == webhookPath
		},
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	root := app.Group(cfg.App.BasePath)
	rest.InitRestApp(root, cfg.App.Version)
	rest.InitRestWebhook(root, application.engine, rest.WebhookConfig{
		VerifyToken: cfg.Whatsapp.VerifyToken,
		AppSecret:   cfg.Whatsapp.AppSecret,
		Allow:       whatsapp.NewAllowList(cfg.Whatsapp.AllowedContacts),
		Debug:       cfg.App.Debug,
	})

	apiGroup := app.Group(cfg.App.BasePath)
	if len(cfg.App.BasicAuth) > 0 {
		apiGroup.Use("/api", basicauth.New(basicauth.Config{Users: basicAuthUsers(cfg.App.BasicAuth)}))
	}
	rest.InitRestHealth(apiGroup, application.health)
	rest.InitRestWorkerPool(apiGroup, application.pool)
	rest.InitRestBotMonitor(apiGroup, application.monitor)

	return app
}

func basicAuthUsers(pairs []string) map[string]string {
	account := make(map[string]string)
	for _, basicAuth := range pairs {
		user, secret, ok := strings.Cut(basicAuth, ":")
		if !ok || user == "" {
			logrus.Fatalln(fmt.Sprintf("Basic auth %q is not valid, please use the format <user>:<secret>", basicAuth))
		}
		account[user] = secret
	}
	return account
}
