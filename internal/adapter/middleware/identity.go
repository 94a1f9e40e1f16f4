package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Identities arrive already authenticated from the gateway in these headers.
const (
	HeaderMemberID = "Ax-Member-Id"
	HeaderAdminID  = "Ax-Admin-Id"

	ctxMemberID = "coop.member_id"
	ctxAdminID  = "coop.admin_id"
)

func RequireMember() echo.MiddlewareFunc { return requireIdentity(HeaderMemberID, ctxMemberID) }

func RequireAdmin() echo.MiddlewareFunc { return requireIdentity(HeaderAdminID, ctxAdminID) }

func requireIdentity(header, key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := strings.TrimSpace(c.Request().Header.Get(header))
			if v == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing " + header})
			}
			if !reHex32.MatchString(v) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid " + header})
			}
			c.Set(key, v)
			return next(c)
		}
	}
}

// MemberID is the caller set by RequireMember, empty otherwise.
func MemberID(c echo.Context) string {
	v, _ := c.Get(ctxMemberID).(string)
	return v
}

// AdminID is the caller set by RequireAdmin, empty otherwise.
func AdminID(c echo.Context) string {
	v, _ := c.Get(ctxAdminID).(string)
	return v
}

func actor(c echo.Context) string {
	if id := AdminID(c); id != "" {
		return "admin:" + id
	}
	if id := MemberID(c); id != "" {
		return "member:" + id
	}
	return ""
}
