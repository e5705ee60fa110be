package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS headers sent on every response.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, OPTIONS"
	AllowHeaders = "Content-Type"
)

// CORSMiddleware sets the permissive CORS headers before any handler runs, so
// they survive on every status, delegated responses included.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", AllowOrigin)
		h.Set("Access-Control-Allow-Methods", AllowMethods)
		h.Set("Access-Control-Allow-Headers", AllowHeaders)
		c.Next()
	}
}

// Preflight answers OPTIONS with a bare 200. It never looks at the filesystem.
func Preflight(c *gin.Context) {
	c.AbortWithStatus(http.StatusOK)
}
