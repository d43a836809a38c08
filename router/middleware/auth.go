package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// ConstantTimeEqual compares a and b in constant time, returning the
// same decision regardless of the position of the first difference.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		// Still perform a constant-time compare against a same-length
		// buffer so the length mismatch doesn't leak timing either.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RequireToken enforces presence and constant-time equality of the API
// token via X-API-Token or "Authorization: Bearer <t>". A no-op when
// token is empty (no token configured).
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		supplied := c.GetHeader("X-API-Token")
		if supplied == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				supplied = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if supplied == "" || !ConstantTimeEqual(supplied, token) {
			c.AbortWithStatusJSON(401, gin.H{"ok": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
