package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noc-portal-api/internal/middleware"
	"github.com/noah-isme/noc-portal-api/internal/models"
)

func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claimsValue, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	return claims, ok
}

func requestIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
