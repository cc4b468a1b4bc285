package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/literacy-tracker-api/internal/middleware"
	"github.com/noah-isme/literacy-tracker-api/internal/models"
)

// claimsFromContext extracts validated JWT claims placed by the auth
// middleware.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
