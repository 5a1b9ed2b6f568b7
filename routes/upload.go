package routes

import (
	"fmt"
	"net/http"
	"time"

	"cs-instructor-backend/models"
	"cs-instructor-backend/utils"

	"github.com/gin-gonic/gin"
)

// Upload ingests a document into the shared knowledge base: save, extract,
// chunk, embed, index. The saved file is removed once its text is indexed.
func (h *Handlers) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithBadRequest(c, "no file provided", nil)
		return
	}

	info := h.processor.Inspect(header)
	if !info.IsAllowed {
		utils.RespondWithBadRequest(c, fmt.Sprintf("file type %s not allowed or file too large", info.Extension), gin.H{
			"file_info": info,
		})
		return
	}

	path, err := h.processor.Save(header)
	if err != nil {
		utils.RespondWithInternalError(c, "could not save upload", nil)
		return
	}
	defer h.processor.Cleanup(path)

	docs, err := h.processor.Extract(path)
	if err != nil {
		utils.RespondWithBadRequest(c, err.Error(), nil)
		return
	}

	start := time.Now()
	chunkIDs, err := h.semantic.Ingest(c.Request.Context(), docs, h.processor.SourceInfo(info))
	if err != nil {
		utils.RespondWithInternalError(c, "could not index document", gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.RecordIngestion(time.Since(start).Seconds(), len(chunkIDs))
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		Success:        true,
		Message:        fmt.Sprintf("Processed %s into %d chunks", info.Filename, len(chunkIDs)),
		FileInfo:       info,
		DocumentsAdded: len(chunkIDs),
		SessionID:      c.PostForm("session_id"),
	})
}
