package utils

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestFormatYen(t *testing.T) {
	assert.Equal(t, "0円", FormatYen(0))
	assert.Equal(t, "300円", FormatYen(300))
	assert.Equal(t, "1,500円", FormatYen(1500))
	assert.Equal(t, "1,234,567円", FormatYen(1234567))
	assert.Equal(t, "-3,000円", FormatYen(-3000))
	assert.Equal(t, "1,000円～3,000円", PriceRange(1000, 3000))
}

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("a-very-long-test-secret", time.Hour)

	token, err := tm.GenerateToken(42, GuardAdmin)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, GuardAdmin, claims.Guard)
	assert.NotEmpty(t, claims.ID)

	id, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestTokenManagerRejectsForeignAndExpiredTokens(t *testing.T) {
	tm := NewTokenManager("a-very-long-test-secret", time.Hour)
	other := NewTokenManager("another-long-test-secret", time.Hour)

	token, err := other.GenerateToken(1, GuardUser)
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("a-very-long-test-secret", -time.Minute)
	token, err = expired.GenerateToken(1, GuardUser)
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Hour))
	revoked, _ = store.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-2", -time.Second))
	revoked, _ = store.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)
}

func TestRedisTokenStoreWithoutClientIsNoop(t *testing.T) {
	store := NewRedisTokenStore(nil)
	require.NoError(t, store.Revoke(context.Background(), "jti", time.Hour))
	revoked, err := store.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

type profileForm struct {
	Name       string  `form:"name" binding:"required,max=255"`
	Kana       string  `form:"kana" binding:"required,katakana"`
	PostalCode string  `form:"postal_code" binding:"required,digits=7"`
	Phone      string  `form:"phone_number" binding:"required,digits=10-11"`
	Birthday   *string `form:"birthday" binding:"omitempty,digits=8"`
}

func bindProfile(values url.Values) map[string]string {
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var form profileForm
	return BindForm(c, &form)
}

func TestBindFormValid(t *testing.T) {
	errs := bindProfile(url.Values{
		"name":         {"侍 太郎"},
		"kana":         {"サムライ タロウ"},
		"postal_code":  {"4600001"},
		"phone_number": {"09012345678"},
		"birthday":     {"19900101"},
	})
	assert.Nil(t, errs)
}

func TestBindFormReportsFormFieldNames(t *testing.T) {
	errs := bindProfile(url.Values{
		"kana":         {"samurai"},
		"postal_code":  {"460-0001"},
		"phone_number": {"123"},
		"birthday":     {"1990"},
	})
	require.NotNil(t, errs)
	for _, field := range []string{"name", "kana", "postal_code", "phone_number", "birthday"} {
		assert.Contains(t, errs, field, fmt.Sprintf("expected error for %s", field))
	}
}

type widget struct {
	ID   uint
	Name string
}

func TestPaginate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:paginate?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	for i := 1; i <= 32; i++ {
		require.NoError(t, db.Create(&widget{Name: fmt.Sprintf("w%02d", i)}).Error)
	}

	page, err := Paginate[widget](db.Model(&widget{}), 3, 15, func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(32), page.Total)
	assert.Equal(t, 3, page.LastPage)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "w31", page.Items[0].Name)

	assert.Equal(t, 1, PageFromQuery("abc"))
	assert.Equal(t, 1, PageFromQuery("-2"))
	assert.Equal(t, 4, PageFromQuery("4"))
}

func TestFlashSurvivesOneRedirect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { LoadFlash(c); c.Next() })
	r.POST("/do", func(c *gin.Context) {
		RedirectWithFlash(c, "/done", FlashMessage, "保存しました。")
	})
	r.GET("/done", func(c *gin.Context) {
		RespondJSON(c, http.StatusOK, "done", nil)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/do", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/done", w.Header().Get("Location"))
	assert.Equal(t, "保存しました。", DecodeFlash(w.Result(), FlashMessage))

	req := httptest.NewRequest(http.MethodGet, "/done", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "保存しました。")
}

func TestRedirectBackStaysOnSite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/favorites/1", func(c *gin.Context) {
		RedirectBack(c, "/restaurants/1", FlashMessage, "お気に入りに追加しました。")
	})

	tests := []struct {
		referer string
		want    string
	}{
		{"", "/restaurants/1"},
		{"http://example.com/restaurants?page=2", "http://example.com/restaurants?page=2"},
		{"/restaurants?page=2", "/restaurants?page=2"},
		{"https://evil.example/", "/restaurants/1"},
		{"//evil.example/", "/restaurants/1"},
		{"/\\evil.example", "/restaurants/1"},
		{"\\\\evil.example", "/restaurants/1"},
		{"javascript:alert(1)", "/restaurants/1"},
		{"ftp://example.com/x", "/restaurants/1"},
	}
	for _, tt := range tests {
		t.Run(tt.referer, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/favorites/1", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Location"))
		})
	}
}
