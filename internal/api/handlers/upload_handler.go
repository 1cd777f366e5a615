package handlers

import (
	"net/http"

	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/api/dto"
	"github.com/ahazfernando/wwa-operations-dashboard-sub002/internal/infrastructure/uploads"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUploadMemory = 32 << 20 // 32 MB

// UploadHandler forwards attachment uploads to the external blob service
type UploadHandler struct {
	client *uploads.Client
}

func NewUploadHandler(client *uploads.Client) *UploadHandler {
	return &UploadHandler{client: client}
}

// UploadFiles accepts a multipart batch under the "files" field and uploads
// each file. Individual failures are reported, not fatal.
func (h *UploadHandler) UploadFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
		return
	}

	headers := c.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	var files []uploads.FileUpload
	var unreadable []string
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			log.Warn("Failed to open uploaded file", zap.String("file", header.Filename), zap.Error(err))
			unreadable = append(unreadable, header.Filename)
			continue
		}
		defer f.Close()
		files = append(files, uploads.FileUpload{Name: header.Filename, Reader: f})
	}

	batch := h.client.UploadAll(c.Request.Context(), files)

	resp := dto.UploadResponse{Failed: append(unreadable, batch.Failed...)}
	for _, r := range batch.Uploaded {
		resp.Uploaded = append(resp.Uploaded, dto.UploadedFile{URL: r.URL, ID: r.ID})
	}

	status := http.StatusOK
	if len(resp.Uploaded) == 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}
