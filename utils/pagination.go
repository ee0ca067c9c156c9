package utils

import (
	"strconv"

	"gorm.io/gorm"
)

type Page[T any] struct {
	Items       []T   `json:"items"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// PageFromQuery reads ?page=, treating anything that is not a positive int as 1.
func PageFromQuery(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Paginate counts the filtered query, then fetches one page with scopes
// (ordering, computed selects, preloads) applied on top.
func Paginate[T any](query *gorm.DB, page, perPage int, scopes ...func(*gorm.DB) *gorm.DB) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	base := query.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return Page[T]{}, err
	}

	items := make([]T, 0, perPage)
	err := base.Scopes(scopes...).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error
	if err != nil {
		return Page[T]{}, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	return Page[T]{
		Items:       items,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}
