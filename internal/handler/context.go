package handler

import (
	"net/http"

	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentOrgID reads the organization claim set by the auth middleware.
// Aborts with 401 when the claim is missing or malformed.
func currentOrgID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("orgID")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Organization claim missing from token"))
		return uuid.Nil, false
	}
	orgID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid organization claim"))
		return uuid.Nil, false
	}
	return orgID, true
}

// currentActorID reads the user identifier set by the auth middleware.
func currentActorID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respondError maps a classified service error onto the HTTP status it deserves.
func respondError(c *gin.Context, err error) {
	code := apperror.HTTPStatus(err)
	c.JSON(code, response.Error(code, err.Error()))
}
