package utils

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type PaginationParams struct {
	Page         int `json:"page"`
	Limit        int `json:"limit"`
	Offset       int `json:"offset"`
	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
}

// ExtractPagination reads ?page= and ?limit= (1-based page).
func ExtractPagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Page:  1,
		Limit: DefaultLimit,
	}

	if p := r.URL.Query().Get("page"); p != "" {
		val, err := strconv.Atoi(p)
		if err != nil || val <= 0 {
			return PaginationParams{}, fmt.Errorf("invalid page parameter: %s", p)
		}
		params.Page = val
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 {
			return PaginationParams{}, fmt.Errorf("invalid limit parameter: %s", l)
		}
		if val > MaxLimit {
			val = MaxLimit
		}
		params.Limit = val
	}
	if params.Page-1 > math.MaxInt/params.Limit {
		return PaginationParams{}, fmt.Errorf("invalid page parameter: %d", params.Page)
	}
	params.Offset = (params.Page - 1) * params.Limit
	return params, nil
}

func (p *PaginationParams) SetPaginationStats(totalRecords int) {
	p.TotalRecords = totalRecords
	p.TotalPages = 0
	if totalRecords > 0 {
		p.TotalPages = (totalRecords + p.Limit - 1) / p.Limit
	}
}

// Window returns the slice bounds of the current page over n items and
// records the totals. Pages past the end are empty.
func (p *PaginationParams) Window(n int) (start, end int) {
	p.SetPaginationStats(n)
	start = p.Offset
	if start < 0 || start > n {
		start = n
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
