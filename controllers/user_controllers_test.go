package controllers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/testutil"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/crypto/bcrypt"
)

func registerForm() url.Values {
	return url.Values{
		"name":                  {"名古屋 太郎"},
		"kana":                  {"ナゴヤ タロウ"},
		"email":                 {"taro@example.com"},
		"password":              {"password123"},
		"password_confirmation": {"password123"},
		"postal_code":           {"4600001"},
		"address":               {"愛知県名古屋市中区"},
		"phone_number":          {"0521234567"},
	}
}

func sessionCookie(w *http.Response) string {
	for _, ck := range w.Cookies() {
		if ck.Name == testutil.CookieName {
			return ck.Value
		}
	}
	return ""
}

func TestRegister(t *testing.T) {
	app := testutil.NewApp(t)

	w := app.Do("POST", "/register", registerForm(), "")
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "会員登録が完了しました。", testutil.Flash(w, utils.FlashMessage))
	assert.NotEmpty(t, sessionCookie(w.Result()))

	var user models.User
	require.NoError(t, app.DB.Where("email = ?", "taro@example.com").First(&user).Error)
	assert.Equal(t, "ナゴヤ タロウ", user.Kana)
	assert.Nil(t, user.Birthday)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
}

func TestRegisterValidation(t *testing.T) {
	app := testutil.NewApp(t)
	testutil.CreateUser(t, app.DB, func(u *models.User) { u.Email = "taken@example.com" })

	tests := []struct {
		name  string
		edit  func(url.Values)
		field string
	}{
		{"kana must be katakana", func(f url.Values) { f.Set("kana", "なごや") }, "kana"},
		{"email must be lowercase", func(f url.Values) { f.Set("email", "Taro@example.com") }, "email"},
		{"email already registered", func(f url.Values) { f.Set("email", "taken@example.com") }, "email"},
		{"password too short", func(f url.Values) {
			f.Set("password", "short")
			f.Set("password_confirmation", "short")
		}, "password"},
		{"confirmation mismatch", func(f url.Values) { f.Set("password_confirmation", "different1") }, "password_confirmation"},
		{"postal code must be 7 digits", func(f url.Values) { f.Set("postal_code", "460-0001") }, "postal_code"},
		{"phone number 10 or 11 digits", func(f url.Values) { f.Set("phone_number", "052123") }, "phone_number"},
		{"birthday 8 digits when given", func(f url.Values) { f.Set("birthday", "1990-01-01") }, "birthday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := registerForm()
			tt.edit(form)
			w := app.Do("POST", "/register", form, "")
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			env := testutil.Decode(t, w, nil)
			assert.Contains(t, env.Errors, tt.field)
		})
	}

	var count int64
	app.DB.Model(&models.User{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestLoginAndLogout(t *testing.T) {
	app := testutil.NewApp(t)
	user := testutil.CreateUser(t, app.DB)

	w := app.Do("POST", "/login", url.Values{"email": {user.Email}, "password": {"wrong-password"}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, sessionCookie(w.Result()))

	w = app.Do("POST", "/login", url.Values{"email": {user.Email}, "password": {testutil.Password}}, "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	token := sessionCookie(w.Result())
	require.NotEmpty(t, token)

	w = app.Do("GET", "/user", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.Do("GET", "/login", nil, token)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = app.Do("POST", "/logout", nil, token)
	require.Equal(t, http.StatusSeeOther, w.Code)

	// The old cookie no longer authenticates.
	w = app.Do("GET", "/user", nil, token)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestUserIndexReportsSubscription(t *testing.T) {
	app := testutil.NewApp(t)
	user := testutil.CreateUser(t, app.DB)
	testutil.Subscribe(t, app.DB, user)

	var data struct {
		User       models.User `json:"user"`
		Subscribed bool        `json:"subscribed"`
	}
	w := app.Do("GET", "/user", nil, app.Token(t, user.ID, utils.GuardUser))
	require.Equal(t, http.StatusOK, w.Code)
	testutil.Decode(t, w, &data)
	assert.Equal(t, user.Email, data.User.Email)
	assert.True(t, data.Subscribed)
}

func TestUserUpdate(t *testing.T) {
	app := testutil.NewApp(t)
	user := testutil.CreateUser(t, app.DB)
	other := testutil.CreateUser(t, app.DB)
	token := app.Token(t, user.ID, utils.GuardUser)

	form := registerForm()
	form.Del("password")
	form.Del("password_confirmation")
	form.Set("email", "new@example.com")
	form.Set("occupation", "エンジニア")

	t.Run("own profile", func(t *testing.T) {
		w := app.Do("PUT", "/user/"+itoa(user.ID), form, token)
		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
		assert.Equal(t, "/user", w.Header().Get("Location"))
		assert.Equal(t, "会員情報を編集しました。", testutil.Flash(w, utils.FlashMessage))

		var saved models.User
		require.NoError(t, app.DB.First(&saved, user.ID).Error)
		assert.Equal(t, "new@example.com", saved.Email)
		require.NotNil(t, saved.Occupation)
		assert.Equal(t, "エンジニア", *saved.Occupation)
		assert.Equal(t, user.Password, saved.Password)
	})

	t.Run("someone else's profile", func(t *testing.T) {
		w := app.Do("GET", "/user/"+itoa(other.ID)+"/edit", nil, token)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/user", w.Header().Get("Location"))
		assert.Equal(t, "不正なアクセスです。", testutil.Flash(w, utils.ErrorMessage))

		w = app.Do("PATCH", "/user/"+itoa(other.ID), form, token)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		var untouched models.User
		require.NoError(t, app.DB.First(&untouched, other.ID).Error)
		assert.Equal(t, other.Email, untouched.Email)
	})

	t.Run("missing user", func(t *testing.T) {
		w := app.Do("GET", "/user/9999/edit", nil, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("email owned by another member", func(t *testing.T) {
		form.Set("email", other.Email)
		w := app.Do("PUT", "/user/"+itoa(user.ID), form, token)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, testutil.Decode(t, w, nil).Errors, "email")
	})
}
