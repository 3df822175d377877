package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/ideaboard/internal/database"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/ideas"
	"github.com/MarcoPoloResearchLab/ideaboard/internal/uploads"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type testServer struct {
	handler    http.Handler
	store      *ideas.Store
	uploadsDir string
}

type testServerOptions struct {
	maxBodyBytes int64
	staticDir    string
}

func newTestServer(testContext *testing.T, options testServerOptions) *testServer {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	tempDir := testContext.TempDir()
	db, err := database.OpenSQLite(filepath.Join(tempDir, "data", "ideas.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	var clockMu sync.Mutex
	tick := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	store, err := ideas.NewStore(ideas.StoreConfig{Database: db, Clock: clock})
	if err != nil {
		testContext.Fatalf("failed to build store: %v", err)
	}
	testContext.Cleanup(func() { _ = store.Close() })

	uploadsDir := filepath.Join(tempDir, "uploads")
	files, err := uploads.NewDiskStore(uploadsDir)
	if err != nil {
		testContext.Fatalf("failed to build upload store: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		IdeaStore:    store,
		FileStore:    files,
		IDProvider:   ideas.NewUUIDProvider(),
		Logger:       zap.NewNop(),
		MaxBodyBytes: options.maxBodyBytes,
		StaticDir:    options.staticDir,
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	return &testServer{handler: handler, store: store, uploadsDir: uploadsDir}
}

func (s *testServer) do(request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func (s *testServer) postJSON(target, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	return s.do(request)
}

func (s *testServer) get(target string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, target, http.NoBody))
}

func (s *testServer) createIdea(testContext *testing.T, title string) ideas.Idea {
	testContext.Helper()
	recorder := s.postJSON("/api/ideas", fmt.Sprintf(`{"title":%q}`, title))
	if recorder.Code != http.StatusCreated {
		testContext.Fatalf("create idea failed: %d %s", recorder.Code, recorder.Body.String())
	}
	var idea ideas.Idea
	decode(testContext, recorder, &idea)
	return idea
}

type uploadPart struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func multipartRequest(testContext *testing.T, target string, parts ...uploadPart) *http.Request {
	testContext.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, part := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.field, part.filename))
		header.Set("Content-Type", part.contentType)
		partWriter, err := writer.CreatePart(header)
		if err != nil {
			testContext.Fatalf("failed to create part: %v", err)
		}
		if _, err := io.Copy(partWriter, bytes.NewReader(part.content)); err != nil {
			testContext.Fatalf("failed to write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		testContext.Fatalf("failed to close multipart writer: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, target, body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func decode(testContext *testing.T, recorder *httptest.ResponseRecorder, target any) {
	testContext.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		testContext.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func expectError(testContext *testing.T, recorder *httptest.ResponseRecorder, status int, message string) {
	testContext.Helper()
	if recorder.Code != status {
		testContext.Fatalf("unexpected status: got %d want %d (%s)", recorder.Code, status, recorder.Body.String())
	}
	var payload map[string]any
	decode(testContext, recorder, &payload)
	if payload["error"] != message {
		testContext.Fatalf("expected error %q, got %v", message, payload["error"])
	}
}
