package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

// fakeMatcher returns one result per staged resume without touching any model.
type fakeMatcher struct {
	err error
}

func (m *fakeMatcher) RankBatch(_ context.Context, jobDescPath, resumeDir string) ([]models.RankedResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, err := os.Stat(jobDescPath); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(resumeDir)
	if err != nil {
		return nil, err
	}

	results := make([]models.RankedResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, models.RankedResult{
			Name:            services.NoNameFound,
			ResumeFilename:  entry.Name(),
			Category:        "HR",
			SimilarityScore: 50,
		})
	}
	return results, nil
}

type testServer struct {
	app        *fiber.App
	uploadRoot string
	batchRepo  repositories.BatchRepository
	auth       services.AuthService
}

type serverOptions struct {
	requireAuth bool
	maxFileSize int64
	matcher     services.MatcherService
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	if opts.maxFileSize == 0 {
		opts.maxFileSize = 1 << 20
	}
	if opts.matcher == nil {
		opts.matcher = &fakeMatcher{}
	}

	log := zap.NewNop()
	root := t.TempDir()
	storage := services.NewStorageService(root)
	require.NoError(t, storage.EnsureUploadDir())

	batchRepo := repositories.NewMemoryBatchRepository()
	auth := services.NewAuthService(repositories.NewMemoryUserRepository(), "handler-test-secret", time.Minute, log)
	_, err := auth.SeedUsers(root+"/missing-users.toml", true)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		UnescapePath: true,
		ErrorHandler: ErrorHandler,
	})

	Register(app, Routes{
		Upload:      NewUploadHandler(batchRepo, storage, opts.matcher, opts.maxFileSize, time.Hour, log),
		Download:    NewDownloadHandler(batchRepo, storage, time.Hour, log),
		Auth:        NewAuthHandler(auth, log),
		AuthService: auth,
		RequireAuth: opts.requireAuth,
	})

	return &testServer{app: app, uploadRoot: root, batchRepo: batchRepo, auth: auth}
}

type upload struct {
	field    string
	filename string
	content  []byte
}

func uploadRequest(t *testing.T, files []upload, token string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body := s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var token models.TokenResponse
	require.NoError(t, json.Unmarshal(body, &token))
	return token.AccessToken
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Detail
}

func defaultBatch() []upload {
	return []upload{
		{"job_description", "job.txt", []byte("Python developer")},
		{"resumes", "Jane Doe.pdf", []byte("%PDF-1.4\x00\x01\x02 jane")},
		{"resumes", "john.pdf", []byte("%PDF-1.4\xff\xfe john")},
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message": "Resume Matcher Backend"}`, string(body))

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"healthy"`)
}

func TestUploadThenDownloadRoundTrip(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	files := defaultBatch()

	resp, body := s.do(t, uploadRequest(t, files, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(body, &uploaded))
	require.Len(t, uploaded.Results, 2)
	_, err := uuid.Parse(uploaded.RequestID)
	require.NoError(t, err)

	id := uuid.MustParse(uploaded.RequestID)
	batch, err := s.batchRepo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, batch.Status)
	assert.Equal(t, 2, batch.ResumeCount)
	expiresBefore := batch.ExpiresAt

	for _, f := range files[1:] {
		path := fmt.Sprintf("/download/%s/%s", uploaded.RequestID, url.PathEscape(f.filename))
		resp, got := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, resp.StatusCode, f.filename)
		assert.Equal(t, f.content, got, f.filename)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
	}

	batch, err = s.batchRepo.FindByID(id)
	require.NoError(t, err)
	assert.False(t, batch.ExpiresAt.Before(expiresBefore))
}

func TestUploadKeysAndEmptyResults(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	resp, body := s.do(t, uploadRequest(t, []upload{{"job_description", "job.txt", []byte("Go")}}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.JSONEq(t, `[]`, string(raw["results"]))
	assert.Contains(t, raw, "request_id")

	resp, body = s.do(t, uploadRequest(t, defaultBatch(), ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &rows))
	require.NotEmpty(t, rows.Results)
	for _, key := range []string{"Name", "Resume Filename", "Email", "Category", "Similarity Score"} {
		assert.Contains(t, rows.Results[0], key)
	}
}

func TestUploadValidation(t *testing.T) {
	t.Run("missing job description", func(t *testing.T) {
		s := newTestServer(t, serverOptions{})
		resp, body := s.do(t, uploadRequest(t, []upload{{"resumes", "a.pdf", []byte("x")}}, ""))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Job description file is required", detail(t, body))
	})

	t.Run("file too large", func(t *testing.T) {
		s := newTestServer(t, serverOptions{maxFileSize: 8})
		resp, body := s.do(t, uploadRequest(t, []upload{
			{"job_description", "job.txt", []byte("short")},
			{"resumes", "big.pdf", []byte("this resume is far too large")},
		}, ""))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, detail(t, body), "too large")

		entries, err := os.ReadDir(s.uploadRoot)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("not multipart", func(t *testing.T) {
		s := newTestServer(t, serverOptions{})
		req := httptest.NewRequest(http.MethodPost, "/upload/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := s.do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUploadPipelineFailure(t *testing.T) {
	s := newTestServer(t, serverOptions{matcher: &fakeMatcher{err: errors.New("embedding service unavailable")}})

	resp, body := s.do(t, uploadRequest(t, defaultBatch(), ""))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "embedding service unavailable", detail(t, body))

	entries, err := os.ReadDir(s.uploadRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	batch, err := s.batchRepo.FindByID(uuid.MustParse(entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, models.BatchFailed, batch.Status)
}

func TestConcurrentUploadsKeepTheirFiles(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	const uploads = 5
	ids := make([]string, uploads)
	requests := make([]*http.Request, uploads)
	for i := range requests {
		requests[i] = uploadRequest(t, []upload{
			{"job_description", "job.txt", []byte("Go developer")},
			{"resumes", fmt.Sprintf("resume-%d.pdf", i), []byte(fmt.Sprintf("content %d", i))},
		}, "")
	}

	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.app.Test(requests[i], -1)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var uploaded models.UploadResponse
			if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded)) {
				ids[i] = uploaded.RequestID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, id := range ids {
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate request id")
		seen[id] = true

		resp, body := s.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/download/%s/resume-%d.pdf", id, i), nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, fmt.Sprintf("content %d", i), string(body))
	}
}

func TestDownloadNotFound(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	resp, body := s.do(t, uploadRequest(t, defaultBatch(), ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(body, &uploaded))

	paths := []string{
		fmt.Sprintf("/download/%s/missing.pdf", uploaded.RequestID),
		fmt.Sprintf("/download/%s/job.txt", uuid.New()),
		fmt.Sprintf("/download/%s/..%%2Fjob_description.txt", uploaded.RequestID),
		"/download/../john.pdf",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp, _ := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, paths[0], nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "File not found", detail(t, body))
}

func TestExportReport(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	resp, body := s.do(t, uploadRequest(t, defaultBatch(), ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(body, &uploaded))

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/export/"+uploaded.RequestID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(services.ReportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1+len(uploaded.Results))

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/export/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRequiresTokenWhenAuthEnabled(t *testing.T) {
	s := newTestServer(t, serverOptions{requireAuth: true})

	resp, body := s.do(t, uploadRequest(t, defaultBatch(), ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Could not validate credentials", detail(t, body))

	resp, _ = s.do(t, uploadRequest(t, defaultBatch(), "forged.token.value"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	entries, err := os.ReadDir(s.uploadRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not stage files")

	token := s.login(t, "recruiter", "recruiter123")
	resp, body = s.do(t, uploadRequest(t, defaultBatch(), token))
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestTokenAndCurrentUser(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, body := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Incorrect username or password", detail(t, body))

	token := s.login(t, "admin", "admin123")

	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body = s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"username": "admin", "full_name": "Admin User", "role": "admin"}`, string(body))

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Could not validate credentials", detail(t, body))

	resp, body = s.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message": "Logged out successfully"}`, string(body))
}
