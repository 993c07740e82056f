package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/web"
)

type RouteConfig struct {
	// CookieKey is a base64 32-byte key; empty disables cookie encryption.
	CookieKey string
	Limiter   *LoginLimiter
	Gatherer  prometheus.Gatherer
}

func SetupRoutes(app *fiber.App, handler *Handler, cfg RouteConfig, log *zap.Logger) {
	// Middleware
	if cfg.CookieKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{Key: cfg.CookieKey}))
	}
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return ulid.Make().String() },
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,DELETE",
	}))

	// Custom logger middleware
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	// Operational endpoints
	app.Get("/health", handler.GetHealth)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// Dashboard script
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   web.Static(),
		MaxAge: 300,
	}))

	// Authentication
	limit := cfg.Limiter.Handler()
	app.Get("/login", handler.ShowLogin)
	app.Post("/login", limit, handler.Login)
	app.Get("/register", handler.ShowRegister)
	app.Post("/register", limit, handler.Register)
	app.Get("/logout", handler.Logout)

	// Dashboard
	app.Get("/", handler.requireLogin(handler.Index))

	api := app.Group("/api")
	api.Get("/data", handler.requireLogin(handler.GetData))
	api.Get("/cities", handler.requireLogin(handler.GetCities))
	api.Get("/weather_alerts", handler.requireLogin(handler.GetAlerts))
	api.Get("/historical_weather", handler.requireLogin(handler.GetHistorical))

	// User preferences
	user := api.Group("/user")
	user.Get("/units", handler.requireLogin(handler.GetUnits))
	user.Post("/units", handler.requireLogin(handler.SetUnits))
	user.Get("/cities", handler.requireLogin(handler.GetUserCities))
	user.Post("/cities", handler.requireLogin(handler.AddUserCity))
	user.Delete("/cities", handler.requireLogin(handler.RemoveUserCity))

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Endpoint not found",
			"reason": ReasonNotFound,
			"path":   c.Path(),
		})
	})

	log.Info("Routes registered", zap.Bool("cookie_encryption", cfg.CookieKey != ""), zap.Bool("login_rate_limit", cfg.Limiter != nil))
}
