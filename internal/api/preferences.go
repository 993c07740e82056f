package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/session"
	"github.com/bobby-s-dev/weather-dashboard/internal/store"
)

// GetUnits handles GET /api/user/units
func (h *Handler) GetUnits(c *fiber.Ctx, sess session.Session) error {
	return c.JSON(fiber.Map{"units": sess.Units()})
}

// SetUnits handles POST /api/user/units
func (h *Handler) SetUnits(c *fiber.Ctx, sess session.Session) error {
	var body struct {
		Units string `json:"units"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Invalid unit")
	}
	units, err := models.ParseUnits(body.Units)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Invalid unit")
	}

	prefs, err := h.users.SetUnits(sess.Username, units)
	if err != nil {
		return h.storeError(c, sess, err)
	}
	sess.Preferences = prefs
	if err := h.sessions.Save(c, sess); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"units": units})
}

// GetCities handles GET /api/cities
func (h *Handler) GetCities(c *fiber.Ctx, _ session.Session) error {
	if h.catalog.Len() == 0 {
		return errorResponse(c, fiber.StatusInternalServerError, ReasonCatalogUnavailable,
			"City data not loaded. Check that the city catalog file is present.")
	}
	return c.JSON(h.catalog.All())
}

// GetUserCities handles GET /api/user/cities
func (h *Handler) GetUserCities(c *fiber.Ctx, sess session.Session) error {
	cities := sess.Preferences.SelectedCities
	if cities == nil {
		cities = []models.City{}
	}
	return c.JSON(cities)
}

// AddUserCity handles POST /api/user/cities. The city must exist in the
// catalog; the stored entry is the catalog's copy.
func (h *Handler) AddUserCity(c *fiber.Ctx, sess session.Session) error {
	id, err := h.cityID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "A city with a numeric id is required")
	}
	if h.catalog.Len() == 0 {
		return errorResponse(c, fiber.StatusInternalServerError, ReasonCatalogUnavailable, "City data not loaded")
	}
	city, ok := h.catalog.ByID(id)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Unknown city")
	}

	prefs, changed, err := h.users.AddCity(sess.Username, city)
	if err != nil {
		return h.storeError(c, sess, err)
	}
	if changed {
		h.logger.Info("City added",
			zap.String("username", sess.Username),
			zap.Int64("city_id", city.ID),
			zap.String("city", city.Name))
	}
	sess.Preferences = prefs
	if err := h.sessions.Save(c, sess); err != nil {
		return err
	}
	return c.JSON(city)
}

// RemoveUserCity handles DELETE /api/user/cities. Removing a city that is
// not selected succeeds.
func (h *Handler) RemoveUserCity(c *fiber.Ctx, sess session.Session) error {
	var city models.City
	if err := json.Unmarshal(c.Body(), &city); err != nil || city.ID == 0 {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "A city with a numeric id is required")
	}

	prefs, changed, err := h.users.RemoveCity(sess.Username, city.ID)
	if err != nil {
		return h.storeError(c, sess, err)
	}
	if changed {
		h.logger.Info("City removed",
			zap.String("username", sess.Username),
			zap.Int64("city_id", city.ID))
	}
	sess.Preferences = prefs
	if err := h.sessions.Save(c, sess); err != nil {
		return err
	}
	return c.JSON(city)
}

func (h *Handler) cityID(c *fiber.Ctx) (int64, error) {
	var city models.City
	if err := json.Unmarshal(c.Body(), &city); err != nil {
		return 0, err
	}
	if err := h.validate.Var(city.ID, "required"); err != nil {
		return 0, err
	}
	return city.ID, nil
}

// storeError maps store failures. A user that vanished from the store
// loses their session.
func (h *Handler) storeError(c *fiber.Ctx, sess session.Session, err error) error {
	if errors.Is(err, store.ErrUserNotFound) {
		h.logger.Warn("Session user missing from store", zap.String("username", sess.Username))
		if derr := h.sessions.Destroy(c); derr != nil {
			h.logger.Error("Failed to destroy session", zap.Error(derr))
		}
		return errorResponse(c, fiber.StatusUnauthorized, ReasonInvalidCredentials, "Session is no longer valid")
	}
	h.logger.Error("Failed to persist preferences",
		zap.String("username", sess.Username),
		zap.Error(err))
	return errorResponse(c, fiber.StatusInternalServerError, ReasonInternal, "Failed to save preferences")
}
