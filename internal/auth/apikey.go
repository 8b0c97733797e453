package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderName carries the caller's API key.
const HeaderName = "X-API-Key"

// clientCtxKey is the Gin context key used to store the authenticated client name.
const clientCtxKey = "api_client"

// APIKeyMiddleware maps X-API-Key to a client name and rejects unknown keys.
// With an empty key set every request passes, so a local deployment needs no
// secrets.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}
		client, ok := lookup(keys, strings.TrimSpace(c.GetHeader(HeaderName)))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}
		c.Set(clientCtxKey, client)
		c.Next()
	}
}

// ClientName returns the authenticated client name, or "" when auth is off.
func ClientName(c *gin.Context) string {
	v, _ := c.Get(clientCtxKey)
	s, _ := v.(string)
	return s
}

func lookup(keys map[string]string, presented string) (string, bool) {
	if presented == "" {
		return "", false
	}
	for key, client := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(presented)) == 1 {
			return client, true
		}
	}
	return "", false
}
