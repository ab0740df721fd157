package response

import (
	"github.com/gin-gonic/gin"
)

// Error writes the standard error body: {"error": message}.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// ErrorWithDetails writes an error body carrying extra detail, used for
// validation field maps and 500-class responses. Details must never echo
// raw internal error strings to the client.
func ErrorWithDetails(c *gin.Context, status int, message string, details any) {
	c.JSON(status, gin.H{"error": message, "details": details})
}

// Abort writes an error body and aborts the middleware chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
