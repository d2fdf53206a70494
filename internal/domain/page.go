package domain

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page 页码从 1 开始
type Page struct {
	Page  int
	Limit int
}

// Normalize 页码 <1 取 1；limit <=0 取默认值，超过上限截断
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(p Page, total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		CurrentPage: p.Page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNextPage: p.Page < pages,
		HasPrevPage: p.Page > 1,
	}
}
