package server

import (
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const staticIndexFile = "index.html"

// handleNoRoute serves the browser client for non-API GET requests and answers
// everything else with a JSON 404.
func (h *httpHandler) handleNoRoute(c *gin.Context) {
	if filePath, ok := h.staticFile(c.Request); ok {
		c.File(filePath)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": messageNotFound})
}

func (h *httpHandler) staticFile(request *http.Request) (string, bool) {
	if h.staticDir == "" {
		return "", false
	}
	if request.Method != http.MethodGet && request.Method != http.MethodHead {
		return "", false
	}
	urlPath := path.Clean("/" + request.URL.Path)
	if urlPath == "/api" || strings.HasPrefix(urlPath, "/api/") {
		return "", false
	}

	root := http.Dir(h.staticDir)
	candidate := urlPath
	info, err := statFS(root, candidate)
	if err == nil && info.IsDir() {
		candidate = path.Join(candidate, staticIndexFile)
		info, err = statFS(root, candidate)
	}
	if err != nil || info.IsDir() {
		return "", false
	}
	return filepath.Join(h.staticDir, filepath.FromSlash(strings.TrimPrefix(candidate, "/"))), true
}

// statFS goes through http.Dir so that paths cannot escape the static root.
func statFS(root http.FileSystem, name string) (fs.FileInfo, error) {
	file, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return file.Stat()
}
