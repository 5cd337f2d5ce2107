// ABOUTME: Caller identity taken from headers set by the fronting auth layer
// ABOUTME: Parses X-Staff-ID and X-Role and gates routes by role
package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Roles accepted in X-Role.
const (
	RoleStaff      = "staff"
	RoleSupervisor = "supervisor"
)

const (
	headerStaffID = "X-Staff-ID"
	headerRole    = "X-Role"
	identityKey   = "identity"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   string
}

func (i Identity) Supervisor() bool { return i.Role == RoleSupervisor }

// identify rejects requests without a usable identity.
func identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(headerStaffID)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid "+headerStaffID)
		}
		role := c.Request().Header.Get(headerRole)
		if role == "" {
			role = RoleStaff
		}
		if role != RoleStaff && role != RoleSupervisor {
			return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("unknown role %q", role))
		}
		c.Set(identityKey, Identity{UserID: id, Role: role})
		return next(c)
	}
}

func requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if identity(c).Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "this action requires the "+role+" role")
			}
			return next(c)
		}
	}
}

func identity(c echo.Context) Identity {
	id, _ := c.Get(identityKey).(Identity)
	return id
}
