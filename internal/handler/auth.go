package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/identity"
	"github.com/fundpool/fundpool/internal/ledger"
)

// callerKey is the gin context key under which the verified caller identity
// is stored.
const callerKey = "fundpool.caller"

// CallerAuth returns a middleware that verifies the Bearer caller token and
// stores the caller identity in the request context. Requests without a
// valid token are rejected with 401.
func CallerAuth(tokens *identity.TokenIssuer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer caller token required"})
			return
		}

		caller, err := tokens.Verify(tokenStr)
		if err != nil {
			logger.Debug("caller token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid caller token"})
			return
		}

		c.Set(callerKey, ledger.Identity(caller))
		c.Next()
	}
}

// CallerFrom returns the verified caller identity stored by CallerAuth.
func CallerFrom(c *gin.Context) (ledger.Identity, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return "", false
	}
	id, ok := v.(ledger.Identity)
	return id, ok
}
