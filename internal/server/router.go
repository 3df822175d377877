package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/uploads"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 10 * 1024 * 1024

var (
	errMissingIdeaStore  = errors.New("idea store dependency required")
	errMissingFileStore  = errors.New("file store dependency required")
	errMissingIDProvider = errors.New("id provider dependency required")
)

// IdeaStore is the persistence surface the HTTP layer depends on.
type IdeaStore interface {
	CreateIdea(ctx context.Context, id, title, description string) (ideas.Idea, error)
	ListIdeas(ctx context.Context) ([]ideas.Idea, error)
	GetIdea(ctx context.Context, id string) (ideas.Idea, bool, error)
	VoteForIdea(ctx context.Context, id string) error
	AddNote(ctx context.Context, id, ideaID, content string) (ideas.Note, error)
	ListNotes(ctx context.Context, ideaID string) ([]ideas.Note, error)
	AddFile(ctx context.Context, file ideas.File) (ideas.File, error)
	ListFiles(ctx context.Context, ideaID string) ([]ideas.File, error)
}

// FileStore holds uploaded bytes on disk.
type FileStore interface {
	Save(originalName string, src io.Reader) (uploads.StoredFile, error)
	Resolve(name string) (string, error)
	Remove(name string) error
}

type Dependencies struct {
	IdeaStore    IdeaStore
	FileStore    FileStore
	IDProvider   ideas.IDProvider
	Logger       *zap.Logger
	MaxBodyBytes int64
	StaticDir    string
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.IdeaStore == nil {
		return nil, errMissingIdeaStore
	}
	if deps.FileStore == nil {
		return nil, errMissingFileStore
	}
	if deps.IDProvider == nil {
		return nil, errMissingIDProvider
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodyBytes := deps.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	handler := &httpHandler{
		ideaStore:    deps.IdeaStore,
		fileStore:    deps.FileStore,
		ids:          deps.IDProvider,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		staticDir:    usableStaticDir(deps.StaticDir, logger),
	}

	router := gin.New()
	router.Use(recoveryMiddleware(logger))
	router.Use(requestLogger(logger))
	router.Use(securityHeaders())
	router.Use(corsMiddleware())
	router.Use(bodyLimit(maxBodyBytes))

	api := router.Group("/api")
	api.GET("/ideas", handler.handleListIdeas)
	api.POST("/ideas", handler.handleCreateIdea)
	api.GET("/ideas/:id", handler.handleGetIdea)
	api.POST("/ideas/:id/vote", handler.handleVoteIdea)
	api.POST("/ideas/:id/notes", handler.handleAddNote)
	api.POST("/ideas/:id/files", handler.handleUploadFile)
	api.GET("/files/:filename", handler.handleServeFile)

	router.NoRoute(handler.handleNoRoute)

	return router, nil
}

type httpHandler struct {
	ideaStore    IdeaStore
	fileStore    FileStore
	ids          ideas.IDProvider
	logger       *zap.Logger
	maxBodyBytes int64
	staticDir    string
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	})
}

func usableStaticDir(dir string, logger *zap.Logger) string {
	if dir == "" {
		return ""
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Debug("static client directory unavailable", zap.String("dir", dir))
		return ""
	}
	return dir
}
