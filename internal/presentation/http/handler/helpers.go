package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/application/service"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
)

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetUnitID extracts the caller's unit from the Gin context
func GetUnitID(c *gin.Context) *uuid.UUID {
	unitIDVal, exists := c.Get("unit_id")
	if !exists {
		return nil
	}
	unitID, ok := unitIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &unitID
}

// IsAdmin checks if the user has the admin role
func IsAdmin(c *gin.Context) bool {
	return c.GetString("user_role") == utils.RoleAdmin
}

// GetActor builds the service actor from the authenticated context. It
// returns false when no user is set.
func GetActor(c *gin.Context) (service.Actor, bool) {
	userID := GetUserID(c)
	if userID == nil {
		return service.Actor{}, false
	}
	return service.Actor{
		UserID: *userID,
		Role:   c.GetString("user_role"),
		UnitID: GetUnitID(c),
	}, true
}

// parseIDParam parses a UUID path parameter
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// optionalIDQuery parses an optional UUID query parameter. An absent
// parameter yields nil; a malformed one reports false.
func optionalIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := utils.ParseUUID(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}
