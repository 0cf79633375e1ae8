package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/policy"
	"accommodation-portal/pkg/response"
)

// Context keys written by middleware.JWTAuth
const (
	CtxUserID        = "user_id"
	CtxRole          = "role"
	CtxServiceUnitID = "service_unit_id"
	CtxTokenJTI      = "token_jti"
	CtxTokenExp      = "token_exp"
)

// MustGetUserID extracts user_id from the gin context.
// Writes a 401 and returns false when the JWT middleware did not run;
// callers return immediately on false.
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetPrincipal builds the caller principal from the token claims.
func MustGetPrincipal(c *gin.Context) (policy.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return policy.Principal{}, false
	}
	role := c.GetString(CtxRole)
	if role == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return policy.Principal{}, false
	}

	p := policy.Principal{UserID: userID, Role: role}
	if unitID := c.GetString(CtxServiceUnitID); unitID != "" {
		p.ServiceUnitID = &unitID
	}
	return p, true
}

// tokenIdentity jti and expiry of the access token in use
func tokenIdentity(c *gin.Context) (string, time.Time) {
	return c.GetString(CtxTokenJTI), c.GetTime(CtxTokenExp)
}

// parseIDParam reads a positive integer path parameter. Writes a 400 on failure.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "invalid "+name)
		return 0, false
	}
	return id, true
}
