package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxUploadBytes caps a single uploaded file.
const maxUploadBytes = 10 << 20

var allowedUploadExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".pdf": true,
}

// UploadFile handles POST /v1/upload
// It saves the file to the upload folder and returns the URL.
func (h *Handlers) UploadFile(c *gin.Context) {
	url, ok := h.saveUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// saveUpload stores the multipart "file" field under a uuid name and returns
// its public URL, or writes the error response.
func (h *Handlers) saveUpload(c *gin.Context) (string, bool) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "No file uploaded")
		return "", false
	}
	if file.Size > maxUploadBytes {
		fail(c, http.StatusBadRequest, "File is too large")
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadExt[ext] {
		fail(c, http.StatusBadRequest, "Unsupported file type")
		return "", false
	}

	// 2. Create the upload directory if it doesn't exist
	uploadPath, baseURL := "./uploads", "http://localhost:8080"
	if h.Config != nil {
		uploadPath, baseURL = h.Config.UploadDir, h.Config.BaseURL
	}
	if err := os.MkdirAll(uploadPath, 0o755); err != nil {
		h.serverError(c, "create upload dir", err)
		return "", false
	}

	// 3. Generate a safe unique filename (uuid + extension)
	newFilename := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(uploadPath, newFilename)); err != nil {
		h.serverError(c, "save upload", err)
		return "", false
	}

	// 4. Return the public URL
	return fmt.Sprintf("%s/uploads/%s", strings.TrimRight(baseURL, "/"), newFilename), true
}
