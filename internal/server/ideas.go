package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageInternal        = "Internal server error"
	messageNotFound        = "Not found"
	messageIdeaNotFound    = "Idea not found"
	messageTitleRequired   = "Title is required"
	messageContentRequired = "Note content is required"
	messageInvalidBody     = "Invalid request body"
	messageBodyTooLarge    = "Request body too large"
)

type createIdeaRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type addNoteRequest struct {
	Content string `json:"content"`
}

type ideaDetailResponse struct {
	ideas.Idea
	Notes []ideas.Note `json:"notes"`
	Files []ideas.File `json:"files"`
}

func (h *httpHandler) handleListIdeas(c *gin.Context) {
	ideaList, err := h.ideaStore.ListIdeas(c.Request.Context())
	if err != nil {
		h.respondInternal(c, "failed to list ideas", err)
		return
	}
	c.JSON(http.StatusOK, ideaList)
}

func (h *httpHandler) handleCreateIdea(c *gin.Context) {
	var request createIdeaRequest
	if !h.bindJSON(c, &request) {
		return
	}

	title := strings.TrimSpace(request.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageTitleRequired})
		return
	}

	id, err := h.ids.NewID()
	if err != nil {
		h.respondInternal(c, "failed to generate idea id", err)
		return
	}

	idea, err := h.ideaStore.CreateIdea(c.Request.Context(), id, title, strings.TrimSpace(request.Description))
	if err != nil {
		h.respondInternal(c, "failed to create idea", err)
		return
	}
	c.JSON(http.StatusCreated, idea)
}

func (h *httpHandler) handleGetIdea(c *gin.Context) {
	ctx := c.Request.Context()
	ideaID := c.Param("id")

	idea, found, err := h.ideaStore.GetIdea(ctx, ideaID)
	if err != nil {
		h.respondInternal(c, "failed to load idea", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": messageIdeaNotFound})
		return
	}

	notes, err := h.ideaStore.ListNotes(ctx, ideaID)
	if err != nil {
		h.respondInternal(c, "failed to list notes", err)
		return
	}
	files, err := h.ideaStore.ListFiles(ctx, ideaID)
	if err != nil {
		h.respondInternal(c, "failed to list files", err)
		return
	}

	c.JSON(http.StatusOK, ideaDetailResponse{
		Idea:  idea,
		Notes: nonNilNotes(notes),
		Files: nonNilFiles(files),
	})
}

func (h *httpHandler) handleVoteIdea(c *gin.Context) {
	ctx := c.Request.Context()
	ideaID := c.Param("id")

	if err := h.ideaStore.VoteForIdea(ctx, ideaID); err != nil {
		if errors.Is(err, ideas.ErrIdeaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": messageIdeaNotFound})
			return
		}
		h.respondInternal(c, "failed to vote for idea", err)
		return
	}

	idea, found, err := h.ideaStore.GetIdea(ctx, ideaID)
	if err != nil {
		h.respondInternal(c, "failed to reload idea", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": messageIdeaNotFound})
		return
	}
	c.JSON(http.StatusOK, idea)
}

func (h *httpHandler) handleAddNote(c *gin.Context) {
	ctx := c.Request.Context()
	ideaID := c.Param("id")

	var request addNoteRequest
	if !h.bindJSON(c, &request) {
		return
	}
	content := strings.TrimSpace(request.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageContentRequired})
		return
	}

	// The existence check precedes the insert so orphans surface as 404, not a constraint failure.
	if !h.requireIdea(c, ideaID) {
		return
	}

	noteID, err := h.ids.NewID()
	if err != nil {
		h.respondInternal(c, "failed to generate note id", err)
		return
	}
	note, err := h.ideaStore.AddNote(ctx, noteID, ideaID, content)
	if err != nil {
		h.respondInternal(c, "failed to add note", err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// requireIdea writes the 404 or 500 response itself and reports whether the idea exists.
func (h *httpHandler) requireIdea(c *gin.Context, ideaID string) bool {
	_, found, err := h.ideaStore.GetIdea(c.Request.Context(), ideaID)
	if err != nil {
		h.respondInternal(c, "failed to load idea", err)
		return false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": messageIdeaNotFound})
		return false
	}
	return true
}

// bindJSON decodes the request body. An empty body decodes to the zero value so that
// required-field validation reports the missing field.
func (h *httpHandler) bindJSON(c *gin.Context, target any) bool {
	err := c.ShouldBindJSON(target)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageBodyTooLarge})
		return false
	}
	h.logger.Debug("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": messageInvalidBody})
	return false
}

func (h *httpHandler) respondInternal(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err), zap.String("path", c.Request.URL.Path))
	body := gin.H{"error": messageInternal}
	var serviceErr *ideas.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func nonNilNotes(notes []ideas.Note) []ideas.Note {
	if notes == nil {
		return []ideas.Note{}
	}
	return notes
}

func nonNilFiles(files []ideas.File) []ideas.File {
	if files == nil {
		return []ideas.File{}
	}
	return files
}
