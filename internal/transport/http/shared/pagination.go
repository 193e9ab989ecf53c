package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Limit  int
	Offset int
}

func queryInt(r *http.Request, name string, fallback, min int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min {
		return fallback
	}
	return value
}

// ParsePagination reads limit/offset query parameters, ignoring values that
// are malformed or out of range. The limit is clamped to maxLimit when set.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	p := Pagination{
		Limit:  queryInt(r, "limit", defaultLimit, 1),
		Offset: queryInt(r, "offset", 0, 0),
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
