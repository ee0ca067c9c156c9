package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/middlewares"
	"github.com/yeremiapane/nagoyameshi/testutil"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const cookieName = "nagoyameshi_session"

type authFixture struct {
	db     *gorm.DB
	tokens *utils.TokenManager
	store  *utils.MemoryTokenStore
	router *gin.Engine
}

func newAuthFixture(t *testing.T, guards ...gin.HandlerFunc) authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)
	f := authFixture{
		db:     db,
		tokens: utils.NewTokenManager(testutil.JWTSecret, time.Hour),
		store:  utils.NewMemoryTokenStore(),
	}

	f.router = gin.New()
	f.router.Use(middlewares.ResolvePrincipal(middlewares.AuthOptions{
		DB:            db,
		Tokens:        f.tokens,
		Store:         f.store,
		Subscriptions: testutil.NewSubscriptionService(db, &testutil.FakeBilling{}),
		CookieName:    cookieName,
	}))
	handlers := append(guards, func(c *gin.Context) {
		c.String(http.StatusOK, auth.FromContext(c).Kind.String())
	})
	f.router.GET("/probe", handlers...)
	f.router.POST("/probe", handlers...)
	return f
}

func (f authFixture) token(t *testing.T, id uint, guard string) string {
	t.Helper()
	token, err := f.tokens.GenerateToken(id, guard)
	require.NoError(t, err)
	return token
}

func (f authFixture) do(method, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/probe", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestResolvePrincipal(t *testing.T) {
	f := newAuthFixture(t)
	user := testutil.CreateUser(t, f.db)
	admin := testutil.CreateAdmin(t, f.db)

	assert.Equal(t, "guest", f.do("GET", "").Body.String())
	assert.Equal(t, "guest", f.do("GET", "not-a-jwt").Body.String())
	assert.Equal(t, "member", f.do("GET", f.token(t, user.ID, utils.GuardUser)).Body.String())
	assert.Equal(t, "administrator", f.do("GET", f.token(t, admin.ID, utils.GuardAdmin)).Body.String())
	assert.Equal(t, "guest", f.do("GET", f.token(t, 9999, utils.GuardUser)).Body.String())

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, user.ID, utils.GuardUser))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "member", w.Body.String())
}

func TestResolvePrincipalRejectsRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	user := testutil.CreateUser(t, f.db)
	token := f.token(t, user.ID, utils.GuardUser)

	claims, err := f.tokens.ParseToken(token)
	require.NoError(t, err)
	require.NoError(t, f.store.Revoke(context.Background(), claims.ID, time.Hour))

	assert.Equal(t, "guest", f.do("GET", token).Body.String())
}

func TestGuardMatrix(t *testing.T) {
	type outcome struct {
		status   int
		location string
	}
	allow := outcome{status: http.StatusOK}
	to := func(path string) outcome { return outcome{status: http.StatusFound, location: path} }

	tests := []struct {
		name    string
		guard   gin.HandlerFunc
		guest   outcome
		free    outcome
		premium outcome
		admin   outcome
	}{
		{"public", middlewares.RedirectIfAdmin(), allow, allow, allow, to("/admin/home")},
		{"admin only", middlewares.RequireAdmin(), to("/admin/login"), to("/admin/login"), to("/admin/login"), allow},
		{"user only", middlewares.RequireUser(), to("/login"), allow, allow, to("/admin/home")},
		{"subscribed", middlewares.RequireSubscribed(), to("/login"), to("/subscription/create"), allow, to("/admin/home")},
		{"not subscribed", middlewares.RequireNotSubscribed(), to("/login"), allow, to("/subscription/edit"), to("/admin/home")},
		{"guest only", middlewares.RedirectIfAuthenticated(), allow, to("/"), to("/"), to("/admin/home")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, tt.guard)
			free := testutil.CreateUser(t, f.db)
			premium := testutil.CreateUser(t, f.db)
			testutil.Subscribe(t, f.db, premium)
			admin := testutil.CreateAdmin(t, f.db)

			cases := map[string]struct {
				token string
				want  outcome
			}{
				"guest":   {"", tt.guest},
				"free":    {f.token(t, free.ID, utils.GuardUser), tt.free},
				"premium": {f.token(t, premium.ID, utils.GuardUser), tt.premium},
				"admin":   {f.token(t, admin.ID, utils.GuardAdmin), tt.admin},
			}
			for who, c := range cases {
				w := f.do("GET", c.token)
				assert.Equal(t, c.want.status, w.Code, who)
				assert.Equal(t, c.want.location, w.Header().Get("Location"), who)
			}
		})
	}
}

func TestGuardUsesSeeOtherAfterMutation(t *testing.T) {
	f := newAuthFixture(t, middlewares.RequireUser())
	w := f.do("POST", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRateLimiterPerIP(t *testing.T) {
	testutil.InitLogger()
	gin.SetMode(gin.TestMode)
	limiter := middlewares.NewRateLimiter(1, 2)
	r := gin.New()
	r.POST("/login", limiter.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))
}

func TestCORSAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.CORSMiddlewares([]string{"https://nagoyameshi.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://nagoyameshi.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://nagoyameshi.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.CORSMiddlewares([]string{"*", "https://nagoyameshi.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://nagoyameshi.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestFlashSurvivesOneRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.Flash())
	r.POST("/save", func(c *gin.Context) {
		utils.RedirectWithFlash(c, "/", utils.FlashMessage, "保存しました。")
	})
	r.GET("/", func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, "ok", nil)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/save", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest("GET", "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "保存しました。")

	var cleared bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == utils.FlashMessage && ck.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}
