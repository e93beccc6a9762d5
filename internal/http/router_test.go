package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/store"
)

func setupRouter(t *testing.T) (*gin.Engine, *store.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := store.NewManager(store.Options{ExportDir: filepath.Join(t.TempDir(), "exports")})
	eventLog := store.NewEventLog(50)
	manager.Subscribe(eventLog)

	router := NewRouter(RouterConfig{Store: manager, EventLog: eventLog, Version: "test"})
	return router, manager
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, _ := http.NewRequest(method, path, reader)
	router.ServeHTTP(w, req)
	return w
}

func seedBook(manager *store.Manager, title, annID, content string) {
	bundle := entities.NewEmptyBundle()
	bundle.Metadata.Title = title
	bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
		ID:      annID,
		Kind:    entities.KindHighlight,
		Content: content,
		Source:  entities.SourceManual,
	})
	manager.ImportBundle(bundle)
}

func TestRouter_Healthcheck(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "GET", "/healthcheck", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "test", response.Version)
	assert.Equal(t, "ok", response.Checks["store"])
}

func TestRouter_Import(t *testing.T) {
	router, manager := setupRouter(t)

	blob := `{"bookTitle": "T", "author": "A", "notes": [{"content": "c1", "type": "highlight"}]}`
	w := doRequest(router, "POST", "/api/import", blob)
	require.Equal(t, http.StatusOK, w.Code)

	var response ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "T", response.BookTitle)
	assert.Equal(t, 1, response.AnnotationsImported)

	_, ok := manager.GetBook("T")
	assert.True(t, ok)
}

func TestRouter_ImportBadFormatHint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "POST", "/api/import?format=pdf", "content")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ImportEmptyBody(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "POST", "/api/import", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ImportOCRTranscript(t *testing.T) {
	router, manager := setupRouter(t)

	body := `{"text": "《围城》\n作者：钱锺书\n划线：婚姻是一座围城。", "confidence": 92}`
	w := doRequest(router, "POST", "/api/import/ocr", body)
	require.Equal(t, http.StatusOK, w.Code)

	var response ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "围城", response.BookTitle)
	assert.Equal(t, 1, response.AnnotationsImported)

	anns, ok := manager.GetAnnotationsForBook("围城")
	require.True(t, ok)
	require.Len(t, anns, 1)
	assert.Equal(t, entities.SourceOCR, anns[0].Source)
}

func TestRouter_ImportOCRLowConfidence(t *testing.T) {
	router, _ := setupRouter(t)

	// The default confidence floor discards the whole transcript.
	body := `{"book_title": "Blurry", "text": "barely legible scan", "confidence": 10}`
	w := doRequest(router, "POST", "/api/import/ocr", body)
	require.Equal(t, http.StatusOK, w.Code)

	var response ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Blurry", response.BookTitle)
	assert.Equal(t, 0, response.AnnotationsImported)
}

func TestRouter_ImportOCRValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "POST", "/api/import/ocr", `{"book_title": "B", "confidence": 90}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "POST", "/api/import/ocr", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_BooksLifecycle(t *testing.T) {
	router, manager := setupRouter(t)
	seedBook(manager, "Dune", "a1", "fear is the mind-killer")

	w := doRequest(router, "GET", "/api/books", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")

	w = doRequest(router, "GET", "/api/books/annotations?title=Dune", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mind-killer")

	w = doRequest(router, "GET", "/api/books/annotations?title=Nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "GET", "/api/books/annotations", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "DELETE", "/api/books?title=Dune", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "DELETE", "/api/books?title=Dune", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ExportBook(t *testing.T) {
	router, manager := setupRouter(t)
	seedBook(manager, "Dune", "a1", "quote")

	w := doRequest(router, "POST", "/api/books/export", `{"title": "Dune"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response ExportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, strings.HasSuffix(response.Path, ".md"))

	w = doRequest(router, "POST", "/api/books/export", `{"title": "Nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "POST", "/api/books/export", `{"title": "Dune", "renderer": "html"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AnnotationsCRUD(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "POST", "/api/annotations", `{"book_title": "Notes", "content": "my thought", "tags": ["idea"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created entities.Annotation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, entities.KindNote, created.Kind)
	assert.Equal(t, entities.SourceManual, created.Source)
	require.NotEmpty(t, created.ID)

	w = doRequest(router, "GET", "/api/annotations/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "PATCH", "/api/annotations/"+created.ID, `{"content": "edited thought"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "edited thought")
	assert.Contains(t, w.Body.String(), "updated_at")

	w = doRequest(router, "DELETE", "/api/annotations/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "GET", "/api/annotations/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CreateManualValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "POST", "/api/annotations", `{"content": "missing title"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "POST", "/api/annotations", `{"book_title": "B", "content": "x", "kind": "doodle"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Search(t *testing.T) {
	router, manager := setupRouter(t)
	seedBook(manager, "Frontend", "a1", "JavaScript tips")
	seedBook(manager, "Backend", "b1", "Python tricks")

	w := doRequest(router, "GET", "/api/annotations/search?q=javascript", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "JavaScript tips")
	assert.NotContains(t, w.Body.String(), "Python")

	w = doRequest(router, "GET", "/api/annotations/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Stats(t *testing.T) {
	router, manager := setupRouter(t)
	seedBook(manager, "Dune", "a1", "quote")

	w := doRequest(router, "GET", "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats store.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalBooks)
	assert.Equal(t, 1, stats.TotalAnnotations)
}

func TestRouter_Events(t *testing.T) {
	router, manager := setupRouter(t)
	seedBook(manager, "Dune", "a1", "quote")

	w := doRequest(router, "GET", "/api/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported"`)
	assert.Contains(t, w.Body.String(), "Dune")
}
