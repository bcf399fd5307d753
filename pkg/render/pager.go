package render

// Pager is the page control state derived from a response.
type Pager struct {
	Page    int
	Limit   int
	Total   int64
	Pages   int
	From    int64
	To      int64
	HasPrev bool
	HasNext bool
}

// NewPager computes page controls. rows is the number of records on the current page.
func NewPager(total int64, limit, page, rows int) Pager {
	if page < 1 {
		page = 1
	}
	p := Pager{Page: page, Limit: limit, Total: total}
	if limit <= 0 || total <= 0 {
		p.Pages = 1
		if total > 0 {
			p.From, p.To = 1, total
		}
		return p
	}

	p.Pages = int((total + int64(limit) - 1) / int64(limit))
	if rows > 0 {
		p.From = int64(page-1)*int64(limit) + 1
		p.To = p.From + int64(rows) - 1
	}
	p.HasPrev = page > 1
	p.HasNext = page < p.Pages
	return p
}
