package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codemicah/okx-credit-score/internal/addr"
	"github.com/codemicah/okx-credit-score/internal/auth"
)

type SessionHandler struct {
	jwt *auth.JWTManager
}

func NewSessionHandler(jwt *auth.JWTManager) *SessionHandler {
	return &SessionHandler{jwt: jwt}
}

// Bind issues a session token for a wallet address. Borrow and repay are only
// reachable through a bound session.
func (h *SessionHandler) Bind(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_address"})
		return
	}

	normalized, err := addr.Normalize(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_address"})
		return
	}

	token, sessionID, err := h.jwt.Mint(normalized)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_mint_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"sessionId":      sessionID,
		"address":        normalized,
		"displayAddress": addr.Checksum(normalized),
	})
}
