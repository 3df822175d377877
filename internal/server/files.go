package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/uploads"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	uploadFieldName = "file"
	// multipartOverhead leaves room for boundaries and part headers around a maximum-size file.
	multipartOverhead int64 = 1 << 20

	messageFileRequired    = "File is required"
	messageSingleFile      = "Only one file may be uploaded"
	messageUnexpectedField = "Unexpected file field"
	messageInvalidFileType = "Invalid file type"
	messageFileTooLarge    = "File too large"
	messageFileNotFound    = "File not found"
)

func (h *httpHandler) handleUploadFile(c *gin.Context) {
	ctx := c.Request.Context()
	ideaID := c.Param("id")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes+multipartOverhead)
	form, err := c.MultipartForm()
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": messageFileTooLarge})
			return
		}
		h.logger.Debug("invalid multipart body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": messageFileRequired})
		return
	}
	defer func() {
		if err := form.RemoveAll(); err != nil {
			h.logger.Warn("failed to remove multipart temp files", zap.Error(err))
		}
	}()

	header, message := singleUpload(form)
	if header == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return
	}
	if header.Size > h.maxBodyBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageFileTooLarge})
		return
	}

	originalName := displayName(header.Filename)
	mimeType := header.Header.Get("Content-Type")
	if !uploads.Admit(originalName, mimeType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageInvalidFileType})
		return
	}

	if !h.requireIdea(c, ideaID) {
		return
	}

	src, err := header.Open()
	if err != nil {
		h.respondInternal(c, "failed to open uploaded part", err)
		return
	}
	defer src.Close()

	stored, err := h.fileStore.Save(originalName, src)
	if err != nil {
		h.respondInternal(c, "failed to store upload", err)
		return
	}

	fileID, err := h.ids.NewID()
	if err != nil {
		h.discardUpload(stored.Name)
		h.respondInternal(c, "failed to generate file id", err)
		return
	}

	record, err := h.ideaStore.AddFile(ctx, ideas.File{
		ID:           fileID,
		IdeaID:       ideaID,
		Filename:     stored.Name,
		OriginalName: originalName,
		FilePath:     stored.Path,
		MimeType:     mimeType,
		Size:         stored.Size,
	})
	if err != nil {
		h.discardUpload(stored.Name)
		h.respondInternal(c, "failed to record upload", err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleServeFile(c *gin.Context) {
	filePath, err := h.fileStore.Resolve(c.Param("filename"))
	if err != nil {
		if errors.Is(err, uploads.ErrFileNotFound) || errors.Is(err, uploads.ErrInvalidName) {
			c.JSON(http.StatusNotFound, gin.H{"error": messageFileNotFound})
			return
		}
		h.respondInternal(c, "failed to resolve upload", err)
		return
	}
	c.File(filePath)
}

func (h *httpHandler) discardUpload(name string) {
	if err := h.fileStore.Remove(name); err != nil {
		h.logger.Warn("failed to discard orphaned upload", zap.String("filename", name), zap.Error(err))
	}
}

// singleUpload returns the one file sent under the upload field, or the validation message.
func singleUpload(form *multipart.Form) (*multipart.FileHeader, string) {
	for field := range form.File {
		if field != uploadFieldName {
			return nil, messageUnexpectedField
		}
	}
	headers := form.File[uploadFieldName]
	switch len(headers) {
	case 0:
		return nil, messageFileRequired
	case 1:
		return headers[0], ""
	default:
		return nil, messageSingleFile
	}
}

// displayName strips any directory components a client may have sent.
func displayName(raw string) string {
	name := path.Base(strings.ReplaceAll(raw, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
