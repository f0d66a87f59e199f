package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/unbfeelings/backend/core"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=field,-field`. Fields missing from allowed are ignored.
func (ord *Ordering) Bind(ctx echo.Context, allowed []string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !contains(allowed, field) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Pagination binds `?page=` and `?page_size=`.
type Pagination struct {
	core.Pagination
}

func (p *Pagination) Bind(ctx echo.Context, conf *core.Config) error {
	p.Page = 1
	p.PageSize = conf.PageSize

	if val := ctx.QueryParam(pageParam); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil || page < 1 {
			return errInvalidPage
		}
		p.Page = page
	}
	if val := ctx.QueryParam(pageSizeParam); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			p.PageSize = size
		}
	}
	if p.PageSize > conf.MaxPageSize {
		p.PageSize = conf.MaxPageSize
	}
	return nil
}

// PageResponse is the paginated list representation.
type PageResponse struct {
	Count    int         `json:"count"`
	Next     null.String `json:"next"`
	Previous null.String `json:"previous"`
	Results  interface{} `json:"results"`
}

// Response builds the page of results out of count matching objects.
// Pages past the last one are invalid, except the first page of an empty result.
func (p Pagination) Response(ctx echo.Context, results interface{}, count int) (PageResponse, error) {
	if p.Page > 1 && p.Offset() >= count {
		return PageResponse{}, errInvalidPage
	}

	resp := PageResponse{Count: count, Results: results}
	if p.Offset()+p.Limit() < count {
		resp.Next = null.StringFrom(pageURL(ctx, p.Page+1))
	}
	if p.Page > 1 {
		resp.Previous = null.StringFrom(pageURL(ctx, p.Page-1))
	}
	return resp, nil
}

func pageURL(ctx echo.Context, page int) string {
	req := ctx.Request()
	u := url.URL{
		Scheme: ctx.Scheme(),
		Host:   req.Host,
		Path:   req.URL.Path,
	}
	q := req.URL.Query()
	if page > 1 {
		q.Set(pageParam, strconv.Itoa(page))
	} else {
		q.Del(pageParam)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// bindList binds the ordering and pagination params shared by list endpoints.
func bindList(ctx echo.Context, conf *core.Config, orderingFields []string) ([]core.DBOrdering, Pagination, error) {
	var ordering Ordering
	ordering.Bind(ctx, orderingFields)
	var page Pagination
	err := page.Bind(ctx, conf)
	return ordering.Orderings, page, err
}

func sendPage(ctx echo.Context, page Pagination, results interface{}, count int) error {
	resp, err := page.Response(ctx, results, count)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}
