package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/response"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
)

var (
	errNoToken        = errors.New("missing access token")
	errMalformedToken = errors.New("malformed authorization header")
)

// bearerToken reads the token from the Authorization header, falling back to
// the access_token query parameter for websocket upgrades that cannot set
// headers.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("access_token"); token != "" {
			return token, nil
		}
		return "", errNoToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.Contains(token, " ") {
		return "", errMalformedToken
	}
	return token, nil
}

// AuthMiddleware rejects requests without a valid access token and stores
// the caller's identity on the context.
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			message := "Authorization header is required"
			if errors.Is(err, errMalformedToken) {
				message = "Invalid authorization header format"
			}
			response.Unauthorized(c, message)
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		if claims.UnitID != nil {
			c.Set("unit_id", *claims.UnitID)
		}
		c.Next()
	}
}

// RequireRole allows only callers holding one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Insufficient role privileges")
		c.Abort()
	}
}
