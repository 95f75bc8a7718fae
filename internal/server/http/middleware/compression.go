package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/dto"
)

// DecompressRequest inflates gzip encoded bodies before binding, so clients posting letter
// intake, resubmissions or audit notes can compress them. A body that is not valid gzip is
// rejected as a validation error.
func DecompressRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
			c.Next()
			return
		}

		originalBody := c.Request.Body
		reader, err := gzip.NewReader(originalBody)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    domainErrors.CodeValidation,
				Message: "malformed gzip body",
			})
			return
		}
		defer reader.Close()
		defer originalBody.Close()

		c.Request.Body = io.NopCloser(reader)
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}
