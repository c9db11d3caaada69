package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/genlink/genlink-api/internal/middleware"
	"github.com/genlink/genlink-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextVolunteerKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
