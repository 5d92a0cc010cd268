package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	appsession "marketing-export/application/session"
	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/auth"
	"marketing-export/infrastructure/metrics"
	"marketing-export/infrastructure/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubAuth struct{}

func (a *stubAuth) Acquire(ctx context.Context, strategy credential.Strategy, cfg auth.Config) (*credential.Credential, error) {
	return &credential.Credential{
		Strategy:          credential.ServiceAccount,
		Subject:           "bot@pragyan.iam.gserviceaccount.com",
		ServiceAccountKey: []byte("{}"),
	}, nil
}

func (a *stubAuth) AuthCodeURL(cfg auth.Config, state string) (string, error) {
	return "https://accounts.example/auth?state=" + url.QueryEscape(state), nil
}

func (a *stubAuth) Exchange(ctx context.Context, cfg auth.Config, code string) (*credential.Credential, error) {
	return &credential.Credential{Strategy: credential.WebOAuth, AccessToken: "t", ClientID: "id"}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, params content.Parameters) (*content.GeneratedContent, error) {
	return &content.GeneratedContent{
		Text:       fmt.Sprintf("%s for %s\n\nA %s pitch.", params.Product, params.Audience, params.Tone),
		Parameters: params,
	}, nil
}

// memDrive holds one folder and records uploads
type memDrive struct {
	uploads []distribution.FileUpload
	bodies  []string
}

func (d *memDrive) Connect(ctx context.Context, cred *credential.Credential) (distribution.DriveClient, error) {
	return d, nil
}

func (d *memDrive) FindFolders(ctx context.Context, q distribution.FolderQuery) ([]distribution.FileInfo, error) {
	if q.Name == "Drive_Connect" {
		return []distribution.FileInfo{{ID: "folder-1", Name: "Drive_Connect"}}, nil
	}
	return nil, nil
}

func (d *memDrive) CreateFolder(ctx context.Context, name, driveID string) (*distribution.FileInfo, error) {
	return nil, fmt.Errorf("not supported")
}

func (d *memDrive) GetFolder(ctx context.Context, id string) (*distribution.FileInfo, error) {
	return nil, nil
}

func (d *memDrive) ListSharedDrives(ctx context.Context, name string) ([]distribution.SharedDrive, error) {
	return nil, nil
}

func (d *memDrive) FindFileByName(ctx context.Context, folderID, name string) (*distribution.FileInfo, error) {
	return nil, nil
}

func (d *memDrive) UploadFile(ctx context.Context, req distribution.FileUpload) (*distribution.UploadResult, error) {
	body, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}
	d.uploads = append(d.uploads, req)
	d.bodies = append(d.bodies, string(body))
	return &distribution.UploadResult{
		FileID:      "file-1",
		FileName:    req.Name,
		WebViewLink: "https://drive.google.com/file/d/file-1/view",
		Size:        int64(len(body)),
	}, nil
}

func (d *memDrive) DownloadFile(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (d *memDrive) DeletePermanently(ctx context.Context, id string) error { return nil }

func (d *memDrive) CreatePermission(ctx context.Context, id string, g distribution.Grant) error {
	return nil
}

func (d *memDrive) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	return &distribution.StorageInfo{Unlimited: true}, nil
}

type harness struct {
	server *Server
	drive  *memDrive
	auth   *stubAuth
	cookie *http.Cookie
}

func newHarness(t *testing.T, strategy credential.Strategy) *harness {
	t.Helper()
	h := &harness{drive: &memDrive{}, auth: &stubAuth{}}

	controller := appsession.NewController(h.auth, stubGenerator{}, h.drive, appsession.Config{
		Strategy:   strategy,
		FolderName: "Drive_Connect",
		FileName:   "marketing_copy.txt",
		Retry:      retry.None,
	})
	recorder, err := metrics.NewRecorder()
	require.NoError(t, err)

	h.server, err = NewServer(Config{SessionTTL: time.Hour, MaxSessions: 10}, controller, recorder, nil)
	require.NoError(t, err)
	return h
}

// do sends a request carrying the harness's session cookie
func (h *harness) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) page(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestServer_IndexCreatesSession(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)

	body := h.page(t)

	assert.Contains(t, body, "Sign in with Google")
	require.NotNil(t, h.cookie)
	assert.True(t, h.cookie.HttpOnly)
	assert.Equal(t, 1, h.server.Sessions().Len())

	// The same cookie reuses the session
	h.page(t)
	assert.Equal(t, 1, h.server.Sessions().Len())
}

func TestServer_GenerateAndUpload(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)

	rec := h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, h.page(t), "bot@pragyan.iam.gserviceaccount.com")

	rec = h.do(t, http.MethodPost, "/generate", url.Values{
		"product":  {"PragyanAI Course"},
		"audience": {"B.Tech Students"},
		"tone":     {"Exciting"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	body := h.page(t)
	assert.Contains(t, body, `<h2 id="headline">PragyanAI Course for B.Tech Students</h2>`)
	assert.Contains(t, body, `value="Drive_Connect"`)
	assert.Contains(t, body, `value="marketing_copy.txt"`)

	rec = h.do(t, http.MethodPost, "/upload", url.Values{
		"text":        {"Edited pitch"},
		"folder_name": {"Drive_Connect"},
		"file_name":   {"marketing_copy.txt"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	require.Len(t, h.drive.uploads, 1)
	assert.Equal(t, "folder-1", h.drive.uploads[0].ParentID)
	assert.Equal(t, "Edited pitch", h.drive.bodies[0])

	body = h.page(t)
	assert.Contains(t, body, "Uploaded marketing_copy.txt")
	assert.Contains(t, body, "https://drive.google.com/file/d/file-1/view")
}

func TestServer_UploadMissingFolder(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)
	h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	h.do(t, http.MethodPost, "/generate", url.Values{"product": {"p"}, "audience": {"a"}})

	h.do(t, http.MethodPost, "/upload", url.Values{
		"folder_name": {"NoSuchFolder"},
		"file_name":   {"marketing_copy.txt"},
	})

	assert.Empty(t, h.drive.uploads)
	body := h.page(t)
	assert.Contains(t, body, `class="error"`)
	assert.Contains(t, body, "NoSuchFolder")
	assert.Contains(t, body, "share the folder with bot@pragyan.iam.gserviceaccount.com")
}

func TestServer_UploadBlankFileName(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)
	h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	h.do(t, http.MethodPost, "/generate", url.Values{"product": {"p"}, "audience": {"a"}})

	h.do(t, http.MethodPost, "/upload", url.Values{"folder_name": {"Drive_Connect"}, "file_name": {"  "}})

	assert.Empty(t, h.drive.uploads)
	assert.Contains(t, h.page(t), "Please enter a valid file name.")
}

func TestServer_UnknownTone(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)
	h.do(t, http.MethodPost, "/auth/signin", url.Values{})

	h.do(t, http.MethodPost, "/generate", url.Values{"product": {"p"}, "audience": {"a"}, "tone": {"Grumpy"}})

	assert.Contains(t, h.page(t), "Please choose one of the offered tones.")
}

func TestServer_WebOAuthFlow(t *testing.T) {
	h := newHarness(t, credential.WebOAuth)
	h.page(t)

	rec := h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	rec = h.do(t, http.MethodGet, "/oauth2/callback?state="+url.QueryEscape(state)+"&code=abc", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, h.page(t), "Signed in as the signed-in Google account")
}

func TestServer_WebOAuthCallbackRejectsForgedState(t *testing.T) {
	h := newHarness(t, credential.WebOAuth)
	h.page(t)
	h.do(t, http.MethodPost, "/auth/signin", url.Values{})

	h.do(t, http.MethodGet, "/oauth2/callback?state=forged&code=abc", nil)

	body := h.page(t)
	assert.Contains(t, body, "Sign-in could not be verified")
	assert.Contains(t, body, "Sign in with Google")
}

func TestServer_Logout(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)
	h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	h.do(t, http.MethodPost, "/generate", url.Values{"product": {"p"}, "audience": {"a"}})

	h.do(t, http.MethodPost, "/logout", url.Values{})

	body := h.page(t)
	assert.Contains(t, body, "Signed out.")
	assert.Contains(t, body, "Sign in with Google")
	assert.NotContains(t, body, `id="headline"`)
}

func TestServer_Download(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)

	rec := h.do(t, http.MethodGet, "/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.do(t, http.MethodPost, "/auth/signin", url.Values{})
	h.do(t, http.MethodPost, "/generate", url.Values{"product": {"p"}, "audience": {"a"}})

	rec = h.do(t, http.MethodGet, "/download", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "marketing_copy.txt")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "p for a"))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	h.page(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `marketing_export_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "marketing_export_active_sessions 1")
}

func TestSessionStore_Bounded(t *testing.T) {
	var counts []int
	store := NewSessionStore(2, time.Hour, func(n int) { counts = append(counts, n) })
	controller := appsession.NewController(&stubAuth{}, stubGenerator{}, &memDrive{}, appsession.Config{})

	first := controller.NewSession(time.Now())
	store.Put(first)
	store.Put(controller.NewSession(time.Now()))
	store.Put(controller.NewSession(time.Now()))

	_, ok := store.Get(first.ID)
	assert.False(t, ok, "least recently used session should be evicted")
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, counts[len(counts)-1])

	_, ok = store.Get("")
	assert.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 2, 10)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "third action exceeds the burst")
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate budgets")
}

func TestServer_GenerateIsRateLimited(t *testing.T) {
	h := newHarness(t, credential.ServiceAccount)
	controller := appsession.NewController(h.auth, stubGenerator{}, h.drive, appsession.Config{Strategy: credential.ServiceAccount, Retry: retry.None})
	server, err := NewServer(Config{MaxSessions: 10, RateLimit: 0.001, RateBurst: 1}, controller, nil, nil)
	require.NoError(t, err)
	h.server = server

	h.page(t)
	form := url.Values{"product": {"PragyanAI"}, "audience": {"Students"}, "tone": {"Casual"}}

	first := h.do(t, http.MethodPost, "/generate", form)
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := h.do(t, http.MethodPost, "/generate", form)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Routes that stay local are not throttled
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", nil).Code)
}
