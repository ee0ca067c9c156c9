package services

import (
	"strconv"
	"strings"

	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

const RestaurantsPerPage = 15

// SortOption is one allow-listed ordering for the restaurant listing.
type SortOption struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	column    string
	direction string
}

// SortOptions in the order they are offered to users. The first is the default.
var SortOptions = []SortOption{
	{Label: "掲載日が新しい順", Value: "created_at desc", column: "created_at", direction: "desc"},
	{Label: "掲載日が古い順", Value: "created_at asc", column: "created_at", direction: "asc"},
	{Label: "価格が安い順", Value: "lowest_price asc", column: "lowest_price", direction: "asc"},
	{Label: "価格が高い順", Value: "lowest_price desc", column: "lowest_price", direction: "desc"},
	{Label: "評価が高い順", Value: "rating desc", column: "reviews_avg_score", direction: "desc"},
	{Label: "予約数が多い順", Value: "reservations_count desc", column: "reservations_count", direction: "desc"},
}

func DefaultSort() SortOption {
	return SortOptions[0]
}

// ParseSort maps a raw select_sort value onto the allow-list. Anything unknown
// falls back to the default, so the raw string never reaches SQL.
func ParseSort(raw string) SortOption {
	normalized := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	for _, opt := range SortOptions {
		if opt.Value == normalized {
			return opt
		}
	}
	return DefaultSort()
}

func (s SortOption) orderClause() string {
	switch s.column {
	case "reviews_avg_score", "reservations_count":
		return s.column + " " + s.direction
	default:
		return "restaurants." + s.column + " " + s.direction
	}
}

// RestaurantQuery is the parsed listing request. Zero values mean "no filter".
type RestaurantQuery struct {
	Keyword    string
	CategoryID uint
	Price      int
	Sort       SortOption
	Page       int
}

// ParseRestaurantQuery reads the listing parameters. Malformed numbers are
// ignored rather than rejected.
func ParseRestaurantQuery(keyword, categoryID, price, sort, page string) RestaurantQuery {
	q := RestaurantQuery{
		Keyword: strings.TrimSpace(keyword),
		Sort:    ParseSort(sort),
		Page:    utils.PageFromQuery(page),
	}
	if id, err := strconv.ParseUint(categoryID, 10, 64); err == nil {
		q.CategoryID = uint(id)
	}
	if p, err := strconv.Atoi(price); err == nil && p > 0 {
		q.Price = p
	}
	return q
}

type RestaurantSearchService struct {
	db *gorm.DB
}

func NewRestaurantSearchService(db *gorm.DB) *RestaurantSearchService {
	return &RestaurantSearchService{db: db}
}

// Search filters, orders and paginates restaurants.
func (s *RestaurantSearchService) Search(q RestaurantQuery) (utils.Page[models.Restaurant], error) {
	query := s.filtered(q)
	return utils.Paginate[models.Restaurant](query, q.Page, RestaurantsPerPage,
		WithAggregates,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Order(q.Sort.orderClause()).Order("restaurants.id " + q.Sort.direction)
		},
		func(tx *gorm.DB) *gorm.DB { return tx.Preload("Categories") },
	)
}

func (s *RestaurantSearchService) filtered(q RestaurantQuery) *gorm.DB {
	query := s.db.Model(&models.Restaurant{})

	if q.Keyword != "" {
		like := "%" + q.Keyword + "%"
		query = query.Where(
			`(restaurants.name LIKE ? OR restaurants.address LIKE ? OR EXISTS (
				SELECT 1 FROM category_restaurant
				JOIN categories ON categories.id = category_restaurant.category_id
				WHERE category_restaurant.restaurant_id = restaurants.id AND categories.name LIKE ?))`,
			like, like, like)
	}

	if q.CategoryID != 0 {
		query = query.Where(`EXISTS (
			SELECT 1 FROM category_restaurant
			WHERE category_restaurant.restaurant_id = restaurants.id AND category_restaurant.category_id = ?)`,
			q.CategoryID)
	}

	if q.Price > 0 {
		query = query.Where("restaurants.lowest_price <= ?", q.Price)
	}

	return query
}

// WithAggregates adds the review average and reservation count columns.
func WithAggregates(tx *gorm.DB) *gorm.DB {
	return tx.Select(`restaurants.*,
		(SELECT COALESCE(AVG(reviews.score), 0) FROM reviews WHERE reviews.restaurant_id = restaurants.id) AS reviews_avg_score,
		(SELECT COUNT(*) FROM reservations WHERE reservations.restaurant_id = restaurants.id) AS reservations_count`)
}

// TopRated returns up to limit restaurants by average review score.
func (s *RestaurantSearchService) TopRated(limit int) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	err := s.db.Model(&models.Restaurant{}).
		Scopes(WithAggregates).
		Order("reviews_avg_score desc").
		Order("restaurants.id asc").
		Limit(limit).
		Preload("Categories").
		Find(&restaurants).Error
	return restaurants, err
}

// Newest returns up to limit restaurants, most recently listed first.
func (s *RestaurantSearchService) Newest(limit int) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	err := s.db.Model(&models.Restaurant{}).
		Scopes(WithAggregates).
		Order("restaurants.created_at desc").
		Order("restaurants.id desc").
		Limit(limit).
		Preload("Categories").
		Find(&restaurants).Error
	return restaurants, err
}
