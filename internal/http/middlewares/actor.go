package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"surplus-relay.com/surplus-relay/pkg/constants"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	actorContextKey = "actor"
)

// Actor is the authenticated caller as asserted by the upstream gateway.
type Actor struct {
	ID   string
	Role constants.Role
}

// ActorIdentity reads the caller from request headers. Requests without an
// identity pass through anonymously; a malformed one is refused.
func ActorIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderActorID)
			role := constants.Role(c.Request().Header.Get(HeaderActorRole))

			if id == "" && role == "" {
				return next(c)
			}
			if id == "" || !role.Valid() {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid actor identity")
			}

			c.Set(actorContextKey, Actor{ID: id, Role: role})
			return next(c)
		}
	}
}

// RequireRole rejects anonymous callers and callers holding any other role.
func RequireRole(roles ...constants.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "actor identity required")
			}
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "role "+string(actor.Role)+" may not do this")
		}
	}
}

func ActorFrom(c echo.Context) (Actor, bool) {
	actor, ok := c.Get(actorContextKey).(Actor)
	return actor, ok
}
