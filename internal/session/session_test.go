package session

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

func newApp(m *Manager) *fiber.App {
	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		return m.Login(c, Session{
			Username: "alice",
			Preferences: models.Preferences{
				SelectedCities: []models.City{{ID: 1, Name: "London", TZ: "Europe/London"}},
				Units:          models.Fahrenheit,
			},
		})
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		s, err := m.Load(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user":   s.Username,
			"units":  s.Units(),
			"cities": len(s.Preferences.SelectedCities),
		})
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		return m.Destroy(c)
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

func TestLoginLoadDestroy(t *testing.T) {
	app := newApp(NewManager(Config{}, zap.NewNop()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil), -1)
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.JSONEq(t, `{"user":"","units":"celsius","cities":0}`, body)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"alice","units":"fahrenheit","cities":1}`, readBody(t, resp))

	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	_, err = app.Test(req, -1)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"","units":"celsius","cities":0}`, readBody(t, resp))
}

func TestLoginRegeneratesID(t *testing.T) {
	app := newApp(NewManager(Config{}, zap.NewNop()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	first := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(first)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	second := sessionCookie(t, resp)
	assert.NotEqual(t, first.Value, second.Value)

	// the old id no longer resolves
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(first)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"","units":"celsius","cities":0}`, readBody(t, resp))
}

func TestCookieKey(t *testing.T) {
	key, err := base64.StdEncoding.DecodeString(CookieKey("secret"))
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, CookieKey("secret"), CookieKey("secret"))
	assert.NotEqual(t, CookieKey("secret"), CookieKey("other"))
}
