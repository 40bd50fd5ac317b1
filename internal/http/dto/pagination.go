package dto

import "math"

type Pagination struct {
	CurrentPage int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	PageSize    int  `json:"pageSize"`
	HasPrev     bool `json:"hasPrev"`
	HasNext     bool `json:"hasNext"`
}

func NewPagination(page, pageSize, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 30
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return &Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PageSize:    pageSize,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
}

// Bounds returns the slice indexes of the current page within total items.
func (p *Pagination) Bounds() (start, end int) {
	start = (p.CurrentPage - 1) * p.PageSize
	if start > p.TotalItems {
		start = p.TotalItems
	}
	end = start + p.PageSize
	if end > p.TotalItems {
		end = p.TotalItems
	}
	return start, end
}
