package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/testutil"
	"gorm.io/gorm"
)

func ids(restaurants []models.Restaurant) []uint {
	out := make([]uint, 0, len(restaurants))
	for _, r := range restaurants {
		out = append(out, r.ID)
	}
	return out
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "created_at desc"},
		{"created_at asc", "created_at asc"},
		{"  LOWEST_PRICE   desc ", "lowest_price desc"},
		{"rating desc", "rating desc"},
		{"reservations_count desc", "reservations_count desc"},
		{"rating", "created_at desc"},
		{"name asc", "created_at desc"},
		{"id; DROP TABLE restaurants", "created_at desc"},
		{"lowest_price sideways", "created_at desc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, services.ParseSort(tt.raw).Value, tt.raw)
	}
}

func TestParseRestaurantQueryIgnoresMalformedNumbers(t *testing.T) {
	q := services.ParseRestaurantQuery(" 味噌 ", "abc", "-5", "bogus", "x")
	assert.Equal(t, "味噌", q.Keyword)
	assert.Equal(t, uint(0), q.CategoryID)
	assert.Equal(t, 0, q.Price)
	assert.Equal(t, services.DefaultSort(), q.Sort)
	assert.Equal(t, 1, q.Page)

	q = services.ParseRestaurantQuery("", "3", "2000", "rating desc", "2")
	assert.Equal(t, uint(3), q.CategoryID)
	assert.Equal(t, 2000, q.Price)
	assert.Equal(t, "rating desc", q.Sort.Value)
	assert.Equal(t, 2, q.Page)
}

type searchFixture struct {
	db       *gorm.DB
	service  *services.RestaurantSearchService
	miso     *models.Category
	ramen    *models.Category
	misoShop *models.Restaurant
	cheap    *models.Restaurant
	station  *models.Restaurant
	plain    *models.Restaurant
}

func newSearchFixture(t *testing.T) searchFixture {
	db := testutil.NewTestDB(t)
	f := searchFixture{db: db, service: services.NewRestaurantSearchService(db)}

	f.miso = testutil.CreateCategory(t, db, "味噌カツ")
	f.ramen = testutil.CreateCategory(t, db, "ラーメン")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.misoShop = testutil.CreateRestaurant(t, db, func(r *models.Restaurant) {
		r.Name, r.LowestPrice, r.CreatedAt = "矢場とん", 1500, base
	})
	f.cheap = testutil.CreateRestaurant(t, db, func(r *models.Restaurant) {
		r.Name, r.LowestPrice, r.CreatedAt = "きしめん亭", 800, base.Add(time.Hour)
	})
	f.station = testutil.CreateRestaurant(t, db, func(r *models.Restaurant) {
		r.Name, r.Address, r.LowestPrice, r.CreatedAt = "駅前食堂", "名古屋駅前", 3000, base.Add(2*time.Hour)
	})
	f.plain = testutil.CreateRestaurant(t, db, func(r *models.Restaurant) {
		r.Name, r.LowestPrice, r.CreatedAt = "喫茶マウンテン", 2000, base.Add(3*time.Hour)
	})

	require.NoError(t, db.Model(f.misoShop).Association("Categories").Append(f.miso))
	require.NoError(t, db.Model(f.station).Association("Categories").Append(f.ramen))
	return f
}

func TestSearchKeywordMatchesNameAddressOrCategory(t *testing.T) {
	f := newSearchFixture(t)

	byName, err := f.service.Search(services.RestaurantQuery{Keyword: "きしめん", Sort: services.DefaultSort()})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.cheap.ID}, ids(byName.Items))

	byAddress, err := f.service.Search(services.RestaurantQuery{Keyword: "名古屋駅", Sort: services.DefaultSort()})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.station.ID}, ids(byAddress.Items))

	byCategory, err := f.service.Search(services.RestaurantQuery{Keyword: "味噌", Sort: services.DefaultSort()})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.misoShop.ID}, ids(byCategory.Items))
	assert.Equal(t, int64(1), byCategory.Total)
	require.Len(t, byCategory.Items[0].Categories, 1)
}

func TestSearchFiltersByCategoryAndPrice(t *testing.T) {
	f := newSearchFixture(t)

	page, err := f.service.Search(services.RestaurantQuery{CategoryID: f.ramen.ID, Sort: services.DefaultSort()})
	require.NoError(t, err)
	for _, r := range page.Items {
		assert.Contains(t, r.CategoryIDs(), f.ramen.ID)
	}
	assert.Equal(t, []uint{f.station.ID}, ids(page.Items))

	page, err = f.service.Search(services.RestaurantQuery{Price: 1500, Sort: services.DefaultSort()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.misoShop.ID, f.cheap.ID}, ids(page.Items))
	for _, r := range page.Items {
		assert.LessOrEqual(t, r.LowestPrice, 1500)
	}

	page, err = f.service.Search(services.RestaurantQuery{Keyword: "味噌", Price: 1000, Sort: services.DefaultSort()})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSearchColumnSorts(t *testing.T) {
	f := newSearchFixture(t)

	page, err := f.service.Search(services.RestaurantQuery{Sort: services.ParseSort("created_at desc")})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.plain.ID, f.station.ID, f.cheap.ID, f.misoShop.ID}, ids(page.Items))

	page, err = f.service.Search(services.RestaurantQuery{Sort: services.ParseSort("created_at asc")})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.misoShop.ID, f.cheap.ID, f.station.ID, f.plain.ID}, ids(page.Items))

	page, err = f.service.Search(services.RestaurantQuery{Sort: services.ParseSort("lowest_price asc")})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.cheap.ID, f.misoShop.ID, f.plain.ID, f.station.ID}, ids(page.Items))

	page, err = f.service.Search(services.RestaurantQuery{Sort: services.ParseSort("lowest_price desc")})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.station.ID, f.plain.ID, f.misoShop.ID, f.cheap.ID}, ids(page.Items))
}

func TestSearchSortsByRatingAndPopularity(t *testing.T) {
	f := newSearchFixture(t)
	u1 := testutil.CreateUser(t, f.db)
	u2 := testutil.CreateUser(t, f.db)

	testutil.CreateReview(t, f.db, f.cheap, u1, 5)
	testutil.CreateReview(t, f.db, f.cheap, u2, 4)
	testutil.CreateReview(t, f.db, f.station, u1, 2)
	testutil.CreateReview(t, f.db, f.plain, u1, 3)

	testutil.CreateReservation(t, f.db, f.station, u1)
	testutil.CreateReservation(t, f.db, f.station, u2)
	testutil.CreateReservation(t, f.db, f.station, u2)
	testutil.CreateReservation(t, f.db, f.misoShop, u1)

	rated, err := f.service.Search(services.RestaurantQuery{Sort: services.ParseSort("rating desc")})
	require.NoError(t, err)
	require.Len(t, rated.Items, 4)
	assert.Equal(t, f.cheap.ID, rated.Items[0].ID)
	assert.InDelta(t, 4.5, rated.Items[0].ReviewsAvgScore, 0.001)
	for i := 1; i < len(rated.Items); i++ {
		assert.GreaterOrEqual(t, rated.Items[i-1].ReviewsAvgScore, rated.Items[i].ReviewsAvgScore)
	}
	assert.Equal(t, f.misoShop.ID, rated.Items[3].ID, "unrated restaurants sort last")

	popular, err := f.service.Search(services.RestaurantQuery{Sort: services.ParseSort("reservations_count desc")})
	require.NoError(t, err)
	require.Len(t, popular.Items, 4)
	assert.Equal(t, f.station.ID, popular.Items[0].ID)
	assert.Equal(t, int64(3), popular.Items[0].ReservationsCount)
	for i := 1; i < len(popular.Items); i++ {
		assert.GreaterOrEqual(t, popular.Items[i-1].ReservationsCount, popular.Items[i].ReservationsCount)
	}
}

func TestSearchPaginatesFifteenPerPage(t *testing.T) {
	db := testutil.NewTestDB(t)
	service := services.NewRestaurantSearchService(db)
	for i := 0; i < 17; i++ {
		testutil.CreateRestaurant(t, db)
	}

	first, err := service.Search(services.RestaurantQuery{Sort: services.DefaultSort(), Page: 1})
	require.NoError(t, err)
	assert.Len(t, first.Items, 15)
	assert.Equal(t, int64(17), first.Total)
	assert.Equal(t, 2, first.LastPage)

	second, err := service.Search(services.RestaurantQuery{Sort: services.DefaultSort(), Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.NotContains(t, ids(first.Items), second.Items[0].ID)
}

func TestTopRatedAndNewest(t *testing.T) {
	f := newSearchFixture(t)
	user := testutil.CreateUser(t, f.db)
	testutil.CreateReview(t, f.db, f.station, user, 5)

	top, err := f.service.TopRated(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, f.station.ID, top[0].ID)

	newest, err := f.service.Newest(6)
	require.NoError(t, err)
	assert.Equal(t, f.plain.ID, newest[0].ID)
}
