package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cityconnect-be/backend"
	"cityconnect-be/config"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:              config.Development,
		JWTSecret:         "test-secret",
		SessionTTL:        time.Hour,
		PublicBaseURL:     "http://api.test",
		MessagingSenderID: "test",
		IssueDailyLimit:   3,
		IssueStatusPolicy: "any",
		Driver:            config.DriverMemory,
		BootstrapAdmins:   "staff@example.org,admin@example.org",
	}
	return &apiClient{t: t, router: setupRouter(cfg, backend.NewMemoryBinding(), zap.NewNop())}
}

func (a *apiClient) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func (a *apiClient) signUp(email string, extra map[string]any) string {
	a.t.Helper()
	body := map[string]any{
		"name": "Test User", "email": email, "password": "secret1", "confirmPassword": "secret1",
		"phone": "555-0100", "address": "1 Main St",
	}
	for k, v := range extra {
		body[k] = v
	}
	w, _ := a.do(http.MethodPost, "/api/auth/register", "", body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w, res := a.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return res["data"].(map[string]any)["token"].(string)
}

func (a *apiClient) userID(token string) string {
	a.t.Helper()
	w, res := a.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return res["data"].(map[string]any)["identity"].(map[string]any)["id"].(string)
}

func (a *apiClient) upload(token, filename, contentType, content string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(a.t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	api := newAPI(t)
	w, body := api.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", body["message"])
}

func TestRegisterValidationAndDuplicates(t *testing.T) {
	api := newAPI(t)

	w, body := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "A", "email": "a@example.org", "password": "secret1", "confirmPassword": "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords do not match", body["error"])

	api.signUp("a@example.org", nil)
	w, body = api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "A", "email": "a@example.org", "password": "secret1", "confirmPassword": "secret1",
		"phone": "1", "address": "x",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User already exists", body["error"])

	w, body = api.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "a@example.org", "password": "nope123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", body["error"])
}

func TestIssueLifecycle(t *testing.T) {
	api := newAPI(t)
	citizen := api.signUp("citizen@example.org", nil)
	staff := api.signUp("staff@example.org", map[string]any{"role": "staff", "department": "public-works", "employeeId": "E-1"})

	w, body := api.do(http.MethodPost, "/api/issues", citizen, map[string]any{
		"title": "Pothole", "description": "Deep", "category": "road-transport", "status": "resolved",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := body["data"].(string)

	w, body = api.do(http.MethodGet, "/api/issues/"+id, citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	issue := body["data"].(map[string]any)
	assert.Equal(t, "pending", issue["status"])
	assert.Equal(t, "medium", issue["priority"])

	w, _ = api.do(http.MethodPut, "/api/issues/"+id+"/status", citizen, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodPut, "/api/issues/"+id+"/status", staff, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(http.MethodPut, "/api/issues/"+id+"/status", staff, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = api.do(http.MethodPost, "/api/issues/"+id+"/comments", staff, map[string]any{"content": "On it"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Test User", body["data"].(map[string]any)["author"])

	w, body = api.do(http.MethodPost, "/api/issues/"+id+"/vote", citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["data"].(map[string]any)["voted"])

	w, body = api.do(http.MethodGet, "/api/issues?status=pending&category=road-transport", citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 1)

	w, _ = api.do(http.MethodGet, "/api/issues?status=closed", citizen, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := api.signUp("other@example.org", nil)
	w, _ = api.do(http.MethodDelete, "/api/issues/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodDelete, "/api/issues/"+id, citizen, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, body = api.do(http.MethodGet, "/api/issues/"+id, citizen, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Issue not found", body["error"])
}

func TestIssueDailyLimit(t *testing.T) {
	api := newAPI(t)
	token := api.signUp("busy@example.org", nil)

	var last int
	for i := 0; i < 4; i++ {
		w, _ := api.do(http.MethodPost, "/api/issues", token, map[string]any{
			"title": "Leak", "description": "Water", "category": "water-sanitation",
		})
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestLogoutEndsSession(t *testing.T) {
	api := newAPI(t)
	token := api.signUp("a@example.org", nil)

	w, body := api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@example.org", body["data"].(map[string]any)["profile"].(map[string]any)["email"])

	w, _ = api.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShellEndpoint(t *testing.T) {
	api := newAPI(t)

	_, body := api.do(http.MethodGet, "/api/app?lang=HI", "", nil)
	assert.Equal(t, "landing", body["screen"])
	assert.Equal(t, "HI", body["landing"].(map[string]any)["language"])

	token := api.signUp("a@example.org", nil)
	_, body = api.do(http.MethodGet, "/api/app", token, nil)
	assert.Equal(t, "dashboard", body["screen"])
	stats := body["dashboard"].(map[string]any)["stats"].(map[string]any)
	assert.Equal(t, float64(0), stats["totalIssues"])
}

func TestConfigRequiresAdmin(t *testing.T) {
	api := newAPI(t)
	citizen := api.signUp("c@example.org", nil)
	admin := api.signUp("admin@example.org", map[string]any{"role": "admin", "department": "administration", "employeeId": "A-1"})

	w, _ := api.do(http.MethodPatch, "/api/config/app", citizen, map[string]any{"maintenance": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodPatch, "/api/config/app", admin, map[string]any{"maintenance": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := api.do(http.MethodGet, "/api/config/app", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["data"].(map[string]any)["maintenance"])

	w, _ = api.do(http.MethodPut, "/api/pages/landing", admin, map[string]any{"title": "Fix Your City"})
	require.Equal(t, http.StatusOK, w.Code)
	_, body = api.do(http.MethodGet, "/api/landing", "", nil)
	assert.Equal(t, "Fix Your City", body["title"])
}

func uploadedPath(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, strings.HasPrefix(res.Data, "http://api.test/files/issues/"), res.Data)
	return strings.TrimPrefix(res.Data, "http://api.test")
}

func TestUploadAndDownload(t *testing.T) {
	api := newAPI(t)
	token := api.signUp("a@example.org", nil)

	path := uploadedPath(t, api.upload(token, "photo.png", "image/png", "png-bytes"))
	assert.True(t, strings.HasSuffix(path, "_photo.png"))

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "inline", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/issues/missing.txt", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadedMarkupIsServedAsAttachment(t *testing.T) {
	api := newAPI(t)
	token := api.signUp("a@example.org", nil)

	path := uploadedPath(t, api.upload(token, "x.html", "text/html", "<script>alert(1)</script>"))

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestCitizenCannotRaiseOwnRole(t *testing.T) {
	api := newAPI(t)
	citizen := api.signUp("c@example.org", nil)

	w, _ := api.do(http.MethodPut, "/api/config/app", citizen, map[string]any{"maintenance": true})
	require.Equal(t, http.StatusForbidden, w.Code)

	w, body := api.do(http.MethodPost, "/api/users/me", citizen, map[string]any{
		"name": "x", "role": "admin", "department": "administration", "employeeId": "1",
		"phone": "1", "address": "x",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User profile already exists", body["error"])

	_, body = api.do(http.MethodGet, "/api/users/me", citizen, nil)
	assert.Equal(t, "citizen", body["data"].(map[string]any)["role"])

	w, _ = api.do(http.MethodPut, "/api/config/app", citizen, map[string]any{"maintenance": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(http.MethodPatch, "/api/users/"+api.userID(citizen)+"/role", citizen, map[string]any{
		"role": "admin", "department": "administration", "employeeId": "1",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaffAccountsComeFromAdmins(t *testing.T) {
	api := newAPI(t)

	w, body := api.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Mallory", "email": "mallory@example.org", "password": "secret1", "confirmPassword": "secret1",
		"role": "admin", "department": "administration", "employeeId": "A-9",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Staff and admin accounts are created by an administrator", body["error"])

	admin := api.signUp("admin@example.org", map[string]any{"role": "admin", "department": "administration", "employeeId": "A-1"})
	worker := api.signUp("worker@example.org", nil)
	reporter := api.signUp("reporter@example.org", nil)

	w, body = api.do(http.MethodPost, "/api/issues", reporter, map[string]any{
		"title": "Leak", "description": "Water", "category": "water-sanitation",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := body["data"].(string)

	w, _ = api.do(http.MethodPut, "/api/issues/"+id+"/status", worker, map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w, body = api.do(http.MethodPatch, "/api/users/"+api.userID(worker)+"/role", admin, map[string]any{
		"role": "staff", "department": "sanitation", "employeeId": "S-3",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "staff", body["data"].(map[string]any)["role"])

	w, _ = api.do(http.MethodPut, "/api/issues/"+id+"/status", worker, map[string]any{"status": "in-progress"})
	assert.Equal(t, http.StatusOK, w.Code)
}
