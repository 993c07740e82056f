// Package session keeps the logged-in user and a working copy of their
// preferences in a server-side fiber session.
package session

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

const (
	CookieName = "session_id"

	keyUser  = "user"
	keyPrefs = "prefs"
)

// Session is the per-browser state. The zero value is anonymous.
type Session struct {
	Username    string
	Preferences models.Preferences
}

func (s Session) Authenticated() bool {
	return s.Username != ""
}

// Units returns the session units, falling back to the default.
func (s Session) Units() models.Units {
	if s.Preferences.Units.Valid() {
		return s.Preferences.Units
	}
	return models.DefaultUnits
}

type Config struct {
	Expiration   time.Duration
	CookieSecure bool
	// Storage defaults to fiber's in-memory storage.
	Storage fiber.Storage
}

type Manager struct {
	store  *session.Store
	logger *zap.Logger
}

func NewManager(cfg Config, logger *zap.Logger) *Manager {
	expiration := cfg.Expiration
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	store := session.New(session.Config{
		Expiration:     expiration,
		Storage:        cfg.Storage,
		KeyLookup:      "cookie:" + CookieName,
		CookiePath:     "/",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		KeyGenerator:   uuid.NewString,
	})
	return &Manager{store: store, logger: logger}
}

// Load returns the session for the request. A missing or expired session
// is anonymous, not an error.
func (m *Manager) Load(c *fiber.Ctx) (Session, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}

	username, _ := sess.Get(keyUser).(string)
	if username == "" {
		return Session{}, nil
	}

	out := Session{Username: username}
	if raw, ok := sess.Get(keyPrefs).(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.Preferences); err != nil {
			m.logger.Warn("Discarding unreadable session preferences",
				zap.String("username", username),
				zap.Error(err))
		}
	}
	if out.Preferences.SelectedCities == nil {
		out.Preferences.SelectedCities = []models.City{}
	}
	return out, nil
}

// Login starts a fresh session id for s, discarding any previous session.
func (m *Manager) Login(c *fiber.Ctx, s Session) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerating session: %w", err)
	}
	return m.write(sess, s)
}

// Save stores s in the current session.
func (m *Manager) Save(c *fiber.Ctx, s Session) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	return m.write(sess, s)
}

func (m *Manager) write(sess *session.Session, s Session) error {
	prefs, err := json.Marshal(s.Preferences)
	if err != nil {
		return fmt.Errorf("encoding session preferences: %w", err)
	}
	sess.Set(keyUser, s.Username)
	sess.Set(keyPrefs, string(prefs))
	if err := sess.Save(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Destroy ends the session and expires the cookie.
func (m *Manager) Destroy(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// CookieKey derives the 32-byte base64 key used by the encryptcookie
// middleware from the configured secret.
func CookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}
