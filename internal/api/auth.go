package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/session"
	"github.com/bobby-s-dev/weather-dashboard/internal/store"
)

type credentialsForm struct {
	Username string `form:"username" validate:"required,min=3,max=50"`
	Password string `form:"password" validate:"required,min=6"`
}

// ShowLogin handles GET /login
func (h *Handler) ShowLogin(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"Next": safeNext(c.Query("next")),
	})
}

// Login handles POST /login
func (h *Handler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	next := safeNext(c.FormValue("next", c.Query("next")))

	rec, err := h.users.Verify(username, password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		h.metrics.AuthEvent("login", "failure")
		h.logger.Info("Login failed", zap.String("username", username), zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
			"Error":    "Invalid credentials",
			"Username": username,
			"Next":     next,
		})
	}
	if err != nil {
		h.metrics.AuthEvent("login", "error")
		return err
	}

	if err := h.sessions.Login(c, session.Session{Username: username, Preferences: rec.Preferences}); err != nil {
		return err
	}
	h.metrics.AuthEvent("login", "success")
	h.logger.Info("User logged in", zap.String("username", username))
	return c.Redirect(next)
}

// ShowRegister handles GET /register
func (h *Handler) ShowRegister(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{})
}

// Register handles POST /register
func (h *Handler) Register(c *fiber.Ctx) error {
	var form credentialsForm
	if err := c.BodyParser(&form); err != nil {
		h.metrics.AuthEvent("register", "invalid")
		return c.Status(fiber.StatusBadRequest).Render("register", fiber.Map{
			"Error": "Invalid form submission",
		})
	}
	if err := h.validate.Struct(form); err != nil {
		h.metrics.AuthEvent("register", "invalid")
		return c.Status(fiber.StatusBadRequest).Render("register", fiber.Map{
			"Error":    validationMessage(err),
			"Username": form.Username,
		})
	}

	rec, err := h.users.Create(form.Username, form.Password)
	if errors.Is(err, store.ErrDuplicateUser) {
		h.metrics.AuthEvent("register", "duplicate")
		return c.Status(fiber.StatusConflict).Render("register", fiber.Map{
			"Error":    "Username already exists",
			"Username": form.Username,
		})
	}
	if err != nil {
		h.metrics.AuthEvent("register", "error")
		return err
	}

	if err := h.sessions.Login(c, session.Session{Username: form.Username, Preferences: rec.Preferences}); err != nil {
		return err
	}
	h.metrics.AuthEvent("register", "success")
	h.logger.Info("User registered", zap.String("username", form.Username))
	return c.Redirect("/")
}

// Logout handles GET /logout
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Destroy(c); err != nil {
		return err
	}
	h.metrics.AuthEvent("logout", "success")
	return c.Redirect("/login")
}
