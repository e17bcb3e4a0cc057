package usercontext

import "github.com/gofiber/fiber/v2"

const (
	KeyUserContext = "USER_CONTEXT"
	KeyUserID      = "USER_ID"
	KeyIsAdmin     = "USER_IS_ADMIN"
)

// UserContext is the authenticated caller attached to a request by the API
// key middleware.
type UserContext struct {
	UserID     uint
	Username   string
	Email      string
	IsLoggedIn bool
	IsAdmin    bool
}

// GetUserContext returns the caller context, or an anonymous one when the
// request did not authenticate.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}
