package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docuvault/document-service/internal/api"
	"github.com/docuvault/document-service/internal/api/handlers"
	"github.com/docuvault/document-service/internal/services"
	"github.com/docuvault/document-service/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth stands in for the OIDC middleware: the X-Test-User header becomes
// the authenticated subject.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader("X-Test-User")
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "UNAUTHORIZED", "message": "missing auth"}})
			return
		}
		c.Set("user_id", user)
		c.Set("user_email", user+"@example.com")
		c.Next()
	}
}

type testServer struct {
	router *gin.Engine
	docs   *services.DocumentService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := storage.NewMemory()
	content := services.NewMemoryContentStore()
	auditor := services.NewAuditor(store, log)
	docs := services.NewDocumentService(store, content, dropQueue{}, auditor, log)
	sharing := services.NewSharingService(store, docs, auditor, "http://localhost:8080", log)

	r := gin.New()
	api.RegisterRoutes(r, handlers.New(docs, sharing, auditor, log), fakeAuth())

	return &testServer{router: r, docs: docs}
}

type dropQueue struct{}

func (dropQueue) EnqueueScan(context.Context, int64) error { return nil }

func (ts *testServer) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func (ts *testServer) uploadDocument(t *testing.T, user, title, content string) int64 {
	t.Helper()
	body, ct := multipartUpload(t, map[string]string{"title": title, "document_type": "contract"}, "doc.pdf", content)
	w := ts.do(t, http.MethodPost, "/api/documents", user, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	return int64(data["id"].(float64))
}

// markClean drives the scan lifecycle directly against the service.
func (ts *testServer) markClean(t *testing.T, id int64) {
	t.Helper()
	_, claimed, err := ts.docs.ClaimForScan(context.Background(), id)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, ts.docs.ReportScanResult(context.Background(), id, services.VerdictClean, "OK (simulated)"))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj := decode(t, w)["error"].(map[string]any)
	return errObj["code"].(string)
}

func TestHealthEndpointIsPublic(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentEndpointsRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/documents", "/api/audit"} {
		w := ts.do(t, http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestUploadReturnsPendingScan(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartUpload(t, map[string]string{"document_type": "passport"}, "passport.pdf", "pdf bytes")
	w := ts.do(t, http.MethodPost, "/api/documents", "alice", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "pending_scan", data["status"])
	assert.Equal(t, "passport.pdf", data["title"], "title falls back to the filename")
	assert.NotContains(t, data, "storage_key", "internal location never leaves the API")
}

func TestUploadRejectsMissingFile(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "no file"))
	require.NoError(t, mw.Close())

	w := ts.do(t, http.MethodPost, "/api/documents", "alice", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestUploadRejectsUnknownDocumentType(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartUpload(t, map[string]string{"document_type": "selfie"}, "x.jpg", "bytes")
	w := ts.do(t, http.MethodPost, "/api/documents", "alice", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadBlockedUntilClean(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "contract bytes")

	w := ts.do(t, http.MethodGet, fmt.Sprintf("/api/documents/%d/download", id), "alice", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	ts.markClean(t, id)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/documents/%d/download", id), "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "contract bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "doc.pdf")
}

func TestForeignDocumentLooksAbsent(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "private")
	ts.markClean(t, id)

	for _, path := range []string{
		fmt.Sprintf("/api/documents/%d", id),
		fmt.Sprintf("/api/documents/%d/download", id),
	} {
		w := ts.do(t, http.MethodGet, path, "bob", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestListDocumentsPaginates(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 3; i++ {
		ts.uploadDocument(t, "alice", fmt.Sprintf("Doc %d", i), "x")
	}

	w := ts.do(t, http.MethodGet, "/api/documents?per_page=2", "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	assert.Len(t, out["data"], 2)
	meta := out["meta"].(map[string]any)
	assert.Equal(t, float64(3), meta["total"])
	assert.Equal(t, float64(2), meta["last_page"])
}

func TestCreateShareAppliesBoundaryDefaults(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "data")
	ts.markClean(t, id)

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/documents/%d/share", id), "alice",
		strings.NewReader("{}"), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["max_downloads"])
	assert.NotEmpty(t, data["expires_at"])
	assert.Contains(t, data["url"], "/api/share/")
}

func TestCreateShareValidatesBounds(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "data")
	ts.markClean(t, id)

	for _, body := range []string{
		`{"expires_in_hours": 0}`,
		`{"expires_in_hours": 169}`,
		`{"max_downloads": 0}`,
		`{"max_downloads": 101}`,
		`{"shared_with_email": "not-an-email"}`,
	} {
		w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/documents/%d/share", id), "alice",
			strings.NewReader(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCreateShareRejectsPendingDocument(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "data")

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/documents/%d/share", id), "alice",
		strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPublicShareDownloadFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "shared content")
	ts.markClean(t, id)

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/documents/%d/share", id), "alice",
		strings.NewReader(`{"expires_in_hours": 1, "max_downloads": 1}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	token := decode(t, w)["data"].(map[string]any)["token"].(string)

	// Info lookup needs no auth and does not consume the budget.
	w = ts.do(t, http.MethodGet, "/api/share/"+token+"/info", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(0), info["share"].(map[string]any)["download_count"])

	w = ts.do(t, http.MethodGet, "/api/share/"+token, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shared content", w.Body.String())

	// Budget of one: the second attempt is gone.
	w = ts.do(t, http.MethodGet, "/api/share/"+token, "", nil, "")
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "GONE", errorCode(t, w))
}

func TestUnknownShareTokenIs404(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/share/deadbeef", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDocument(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "data")
	ts.markClean(t, id)

	w := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/documents/%d", id), "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/documents/%d", id), "alice", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditTrailEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadDocument(t, "alice", "Contract", "data")
	ts.markClean(t, id)
	ts.do(t, http.MethodGet, fmt.Sprintf("/api/documents/%d", id), "alice", nil, "")

	w := ts.do(t, http.MethodGet, "/api/audit", "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.NotEmpty(t, out["data"])

	// Other users see their own, empty trail.
	w = ts.do(t, http.MethodGet, "/api/audit", "bob", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])

	w = ts.do(t, http.MethodGet, "/api/audit/actions", "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 9)

	w = ts.do(t, http.MethodGet, "/api/audit/export", "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "document.created")
}
