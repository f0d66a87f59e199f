package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Pagination selects a page of a query result. Page numbers start at 1.
// The zero value means "no pagination".
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) IsZero() bool {
	return p.PageSize <= 0
}

func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func (p Pagination) Limit() int {
	return p.PageSize
}

// Paginate returns the [start, end) bounds of the page within a slice of length n.
func (p Pagination) Paginate(n int) (start, end int) {
	if p.IsZero() {
		return 0, n
	}
	start = p.Offset()
	if start > n {
		start = n
	}
	end = start + p.Limit()
	if end > n {
		end = n
	}
	return start, end
}
