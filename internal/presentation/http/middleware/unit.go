package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/response"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
)

// RequireUnit ensures kiosk users are bound to an active unit. Admins act
// across units and pass through.
func RequireUnit(unitRepo repository.UnitRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_role") == utils.RoleAdmin {
			c.Next()
			return
		}

		unitID := GetUnitID(c)
		if unitID == uuid.Nil {
			response.BadRequest(c, "User is not assigned to a unit. Please contact administrator.")
			c.Abort()
			return
		}

		unit, err := unitRepo.GetByID(c.Request.Context(), unitID)
		if err != nil || unit == nil || !unit.IsActive {
			response.NotFound(c, "Unit not found")
			c.Abort()
			return
		}

		c.Set("unit", unit)
		c.Next()
	}
}

// GetUnitID retrieves the unit ID from gin context
func GetUnitID(c *gin.Context) uuid.UUID {
	unitID, exists := c.Get("unit_id")
	if !exists {
		return uuid.Nil
	}
	id, ok := unitID.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
