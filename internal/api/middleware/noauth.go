package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoAuth is a pass-through middleware for self-hosted and local use.
// Generations are attributed to "anonymous".
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", "anonymous")
		c.Next()
	}
}
