package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/config"
	"github.com/yeremiapane/nagoyameshi/router"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const (
	CookieName    = "nagoyameshi_session"
	WebhookSecret = "whsec_test_secret"
	MaxImageKB    = 4
)

// App is the fully wired HTTP stack over an in-memory database.
type App struct {
	Router    *gin.Engine
	DB        *gorm.DB
	Billing   *FakeBilling
	Tokens    *utils.TokenManager
	Store     *utils.MemoryTokenStore
	UploadDir string
}

// NewApp builds the router the way main does, with a fake billing provider
// and a temporary upload directory.
func NewApp(t *testing.T, mutate ...func(*config.Config)) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &App{
		DB:        NewTestDB(t),
		Billing:   &FakeBilling{},
		Tokens:    utils.NewTokenManager(JWTSecret, time.Hour),
		Store:     utils.NewMemoryTokenStore(),
		UploadDir: t.TempDir(),
	}

	cfg := &config.Config{
		Environment: "test",
		LogLevel:    "error",
		Server: config.ServerConfig{
			GinMode:       gin.TestMode,
			CORSOrigins:   []string{"http://localhost:5173"},
			AuthRateLimit: 6000,
			AuthRateBurst: 1000,
		},
		Auth: config.AuthConfig{
			JWTSecret:  JWTSecret,
			TokenTTL:   time.Hour,
			CookieName: CookieName,
		},
		Billing: config.BillingConfig{
			StripePublishableKey: "pk_test",
			StripeWebhookSecret:  WebhookSecret,
			PlanName:             PlanName,
			PriceID:              PriceID,
			MonthlyFee:           MonthlyFee,
		},
		Storage: config.StorageConfig{
			UploadDir:  app.UploadDir,
			PublicPath: "/storage/restaurants",
			MaxImageKB: MaxImageKB,
		},
	}
	for _, m := range mutate {
		m(cfg)
	}

	app.Router = router.SetupRouter(router.Options{
		Config:     cfg,
		DB:         app.DB,
		Tokens:     app.Tokens,
		TokenStore: app.Store,
		Billing:    app.Billing,
		Images:     services.NewLocalImageStorage(cfg.Storage.UploadDir, cfg.Storage.MaxImageKB),
	})
	return app
}

// Token signs a session token for id in guard.
func (a *App) Token(t *testing.T, id uint, guard string) string {
	t.Helper()
	token, err := a.Tokens.GenerateToken(id, guard)
	require.NoError(t, err)
	return token
}

// Do sends a request carrying form as an urlencoded body and token as the
// session cookie. Either may be empty.
func (a *App) Do(method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return a.Serve(req, token)
}

// DoMultipart sends form and an optional file under fileField as multipart.
func (a *App) DoMultipart(t *testing.T, method, path string, form url.Values, fileField, fileName string, content []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range form {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.Serve(req, token)
}

func (a *App) Serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// Envelope is the JSON body every handler answers with.
type Envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Decode parses the response envelope and, when data is non-nil, its data field.
func Decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// Flash returns the flash message set by a redirect response.
func Flash(w *httptest.ResponseRecorder, key string) string {
	return utils.DecodeFlash(w.Result(), key)
}
