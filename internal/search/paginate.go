package search

import "math"

const (
	// MaxPageSize bounds client supplied page sizes
	MaxPageSize = 100
)

// PageOptions is a 1-based page request
type PageOptions struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Normalize clamps the size to 1..MaxPageSize and the page to >= 1 and
// small enough that its offset fits in an int
func (p PageOptions) Normalize() PageOptions {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultLimit
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if maxPage := math.MaxInt / p.PageSize; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Offset returns the number of rows to skip
func (p PageOptions) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Limit returns the normalized page size
func (p PageOptions) Limit() int {
	return p.Normalize().PageSize
}

// Pagination describes where a page sits in the full result
type Pagination struct {
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Paginate builds the pagination envelope for totalCount rows
func Paginate(totalCount int, opts PageOptions) Pagination {
	n := opts.Normalize()
	totalPages := (totalCount + n.PageSize - 1) / n.PageSize
	return Pagination{
		Page:            n.Page,
		PageSize:        n.PageSize,
		TotalCount:      totalCount,
		TotalPages:      totalPages,
		HasNextPage:     n.Page < totalPages,
		HasPreviousPage: n.Page > 1,
	}
}
