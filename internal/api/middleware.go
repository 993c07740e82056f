package api

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/bobby-s-dev/weather-dashboard/internal/session"
)

// sessionHandler receives the authenticated session explicitly.
type sessionHandler func(c *fiber.Ctx, sess session.Session) error

// requireLogin loads the session and redirects anonymous requests to the
// login page, remembering where they were going.
func (h *Handler) requireLogin(next sessionHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := h.sessions.Load(c)
		if err != nil {
			return err
		}
		if !sess.Authenticated() {
			return c.Redirect("/login?next=" + url.QueryEscape(c.OriginalURL()))
		}
		return next(c, sess)
	}
}

// safeNext only allows redirects to local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

const (
	limiterIdle     = 10 * time.Minute
	limiterPruneMin = 1024
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles credential submissions per client IP.
type LoginLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

// NewLoginLimiter returns nil when perSecond is not positive, which
// disables throttling.
func NewLoginLimiter(perSecond float64, burst int) *LoginLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &LoginLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *LoginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.visitors) >= limiterPruneMin {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(l.visitors, key)
			}
		}
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (l *LoginLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || l.allow(c.IP()) {
			return c.Next()
		}
		return errorResponse(c, fiber.StatusTooManyRequests, ReasonRateLimited, "Too many attempts, try again later")
	}
}
