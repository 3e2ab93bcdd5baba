package middleware

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qc-api/internal/handler"
	"github.com/qualitrack/qc-api/internal/model"
)

var codeParamPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CodeParam guarantees the :code path segment is syntactically well-formed
// before the single-entity handlers run. A malformed code gets the same
// not-found outcome a missing one would.
func CodeParam(cfg model.EntityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		if code == "" || len(code) > cfg.CodeLength || !codeParamPattern.MatchString(code) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(fmt.Sprintf("%s not found", cfg.EntityName)))
			c.Abort()
			return
		}
		c.Next()
	}
}
