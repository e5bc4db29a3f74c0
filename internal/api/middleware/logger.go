package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request in the service's log format
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		log.Printf("[API] %s %s -> %d (%d bytes, duration: %v)",
			c.Request.Method, path, c.Writer.Status(), c.Writer.Size(), time.Since(start))
		for _, e := range c.Errors {
			log.Printf("[API] error: %v", e.Err)
		}
	}
}
