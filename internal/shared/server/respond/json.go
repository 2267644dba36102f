package respond

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/util"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Accepted writes a 202 Accepted JSON response.
func Accepted(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusAccepted, payload)
}

// Attachment writes data as a file download named fileName.
func Attachment(c *gin.Context, fileName, contentType string, data []byte) {
	c.Header("Content-Disposition", util.ContentDisposition(fileName))
	c.Data(http.StatusOK, contentType, data)
}

// StreamAttachment copies body to the client as a file download.
func StreamAttachment(c *gin.Context, fileName, contentType string, body io.Reader) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", util.ContentDisposition(fileName))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
