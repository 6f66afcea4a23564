package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/estates-web/internal/domain"
	"github.com/spec-kit/estates-web/internal/repository"
)

const currentUserKey = "current_user"

// SessionMiddleware reads the session cookie and loads the signed-in user.
type SessionMiddleware struct {
	sessions *SessionManager
	users    repository.UserRepository
}

// NewSessionMiddleware constructs middleware over the session manager and
// user store.
func NewSessionMiddleware(sessions *SessionManager, users repository.UserRepository) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, users: users}
}

// Attach resolves the session cookie into the current user when present.
// A missing or stale cookie leaves the request anonymous; enforcement is the
// job of RequireUser.
func (m *SessionMiddleware) Attach(c *fiber.Ctx) error {
	cookie := c.Cookies(SessionCookie)
	if cookie == "" {
		return c.Next()
	}

	claims, err := m.sessions.Parse(cookie)
	if err != nil {
		ClearSessionCookie(c)
		return c.Next()
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			ClearSessionCookie(c)
			return c.Next()
		}
		return err
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

// RequireUser redirects anonymous requests to the login form.
func (m *SessionMiddleware) RequireUser(c *fiber.Ctx) error {
	if _, ok := CurrentUser(c); !ok {
		return c.Redirect("/auth/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireGuest bounces signed-in users off guest-only pages such as the
// login and registration forms.
func (m *SessionMiddleware) RequireGuest(c *fiber.Ctx) error {
	if _, ok := CurrentUser(c); ok {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return c.Next()
}

// CurrentUser retrieves the signed-in user loaded by Attach.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(currentUserKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
