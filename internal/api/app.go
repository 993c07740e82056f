package api

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/bobby-s-dev/weather-dashboard/internal/web"
)

// NewApp creates the fiber app with the HTML views and JSON error handler.
func NewApp(readTimeout, writeTimeout time.Duration) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "weather-dashboard",
		// handlers keep form values (usernames) beyond the request
		Immutable:    true,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
		Views:        web.NewEngine(),
	})
}
