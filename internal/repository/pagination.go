package repository

import (
	"strings"

	"github.com/lib/pq"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage clamps page/size to sane bounds and returns the row offset.
func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size, (page - 1) * size
}

// orderBy resolves a user-supplied sort key against a whitelist of columns.
func orderBy(sortBy, sortOrder string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	direction := strings.ToUpper(sortOrder)
	if direction != "ASC" && direction != "DESC" {
		direction = "DESC"
	}
	return column + " " + direction
}

func pqStringArray(values []string) interface{} {
	return pq.Array(values)
}
