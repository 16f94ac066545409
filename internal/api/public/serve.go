// serve.go handles direct file serving from local storage backends.
package public

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/storage"
)

// ServeFileHandler handles direct file serving for local storage
// Implements: GET /v1/files/*filepath
// Only used when local storage has ServeDirectly: true
func ServeFileHandler(storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		filePath := strings.TrimPrefix(c.Param("filepath"), "/")
		if filePath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File path is required"})
			return
		}
		// Stored object keys never contain dot segments, so any `..` here is
		// a traversal attempt.
		if containsDotDot(filePath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file path"})
			return
		}

		exists, err := storageBackend.Exists(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check file existence"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}

		metadata, err := storageBackend.GetMetadata(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get file metadata"})
			return
		}

		reader, err := storageBackend.Download(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
			return
		}
		defer reader.Close()

		contentType := mime.TypeByExtension(path.Ext(filePath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		c.Header("X-Checksum-SHA256", metadata.Checksum)
		c.DataFromReader(http.StatusOK, metadata.Size, contentType, reader, nil)
	}
}

func containsDotDot(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}
