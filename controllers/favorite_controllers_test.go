package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/testutil"
	"github.com/yeremiapane/nagoyameshi/utils"
)

func TestFavorites(t *testing.T) {
	app := testutil.NewApp(t)
	first := testutil.CreateRestaurant(t, app.DB)
	second := testutil.CreateRestaurant(t, app.DB)
	user := testutil.CreateUser(t, app.DB)
	testutil.Subscribe(t, app.DB, user)
	token := app.Token(t, user.ID, utils.GuardUser)

	w := app.Do("POST", "/favorites/"+itoa(first.ID), nil, token)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/restaurants/"+itoa(first.ID), w.Header().Get("Location"))
	assert.Equal(t, "お気に入りに追加しました。", testutil.Flash(w, utils.FlashMessage))

	// Adding the same restaurant again keeps a single row.
	w = app.Do("POST", "/favorites/"+itoa(first.ID), nil, token)
	require.Equal(t, http.StatusSeeOther, w.Code)
	var count int64
	app.DB.Model(&models.Favorite{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	require.NoError(t, app.DB.Create(&models.Favorite{
		UserID:       user.ID,
		RestaurantID: second.ID,
		CreatedAt:    time.Now().Add(time.Hour),
	}).Error)

	var data struct {
		FavoriteRestaurants utils.Page[models.Restaurant] `json:"favorite_restaurants"`
	}
	w = app.Do("GET", "/favorites", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.Decode(t, w, &data)
	require.Len(t, data.FavoriteRestaurants.Items, 2)
	assert.Equal(t, second.ID, data.FavoriteRestaurants.Items[0].ID)
	assert.Equal(t, first.ID, data.FavoriteRestaurants.Items[1].ID)

	var show struct {
		IsFavorite bool `json:"is_favorite"`
	}
	testutil.Decode(t, app.Do("GET", "/restaurants/"+itoa(first.ID), nil, token), &show)
	assert.True(t, show.IsFavorite)

	req := app.Do("DELETE", "/favorites/"+itoa(first.ID), nil, token)
	require.Equal(t, http.StatusSeeOther, req.Code)
	assert.Equal(t, "お気に入りを解除しました。", testutil.Flash(req, utils.FlashMessage))

	testutil.Decode(t, app.Do("GET", "/restaurants/"+itoa(first.ID), nil, token), &show)
	assert.False(t, show.IsFavorite)

	w = app.Do("POST", "/favorites/9999", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFavoriteRedirectsBackToReferer(t *testing.T) {
	app := testutil.NewApp(t)
	restaurant := testutil.CreateRestaurant(t, app.DB)
	user := testutil.CreateUser(t, app.DB)
	testutil.Subscribe(t, app.DB, user)

	req := newRequest("POST", "/favorites/"+itoa(restaurant.ID))
	req.Header.Set("Referer", "http://example.com/favorites")
	w := app.Serve(req, app.Token(t, user.ID, utils.GuardUser))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "http://example.com/favorites", w.Header().Get("Location"))

	req = newRequest("DELETE", "/favorites/"+itoa(restaurant.ID))
	req.Header.Set("Referer", "http://evil.test/phish")
	w = app.Serve(req, app.Token(t, user.ID, utils.GuardUser))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/restaurants/"+itoa(restaurant.ID), w.Header().Get("Location"))
}
