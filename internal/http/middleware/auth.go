package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codemicah/okx-credit-score/internal/auth"
)

const (
	ContextAddress   = "session_address"
	ContextSessionID = "session_id"
)

// RequireSession extracts the bound address from a bearer token. Mutations
// without a session carry no bound address and are rejected here.
func RequireSession(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no_address_bound"})
			return
		}

		claims, err := jwt.Parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no_address_bound"})
			return
		}

		c.Set(ContextAddress, claims.Address)
		c.Set(ContextSessionID, claims.SessionID)
		c.Next()
	}
}
