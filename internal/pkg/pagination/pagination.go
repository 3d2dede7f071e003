package pagination

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Params represents list query parameters
type Params struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Offset int    `json:"-"`
	Search string `json:"search,omitempty"`
	Sort   string `json:"sort,omitempty"`
	Desc   bool   `json:"desc,omitempty"`
	// From and To bound tanggal_pickup, YYYY-MM-DD inclusive
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	// Paged is false when the caller asked for the whole table
	Paged bool `json:"-"`
}

// Meta represents pagination metadata
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// DefaultLimit is the default number of items per page
const DefaultLimit = 10

// MaxLimit is the maximum number of items per page
const MaxLimit = 100

// GetParams extracts list parameters from request.
// Without page or limit the request is unpaged.
func GetParams(c *fiber.Ctx) *Params {
	_, hasPage := c.Queries()["page"]
	_, hasLimit := c.Queries()["limit"]

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))

	p := &Params{
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   strings.TrimSpace(c.Query("sort")),
		Desc:   strings.EqualFold(c.Query("order"), "desc"),
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
		Paged:  hasPage || hasLimit,
	}
	p.normalize(page, limit)
	return p
}

func (p *Params) normalize(page, limit int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	p.Page = page
	p.Limit = limit
	p.Offset = (page - 1) * limit
}

// New builds paged params outside of an HTTP request
func New(page, limit int) *Params {
	p := &Params{Paged: true}
	p.normalize(page, limit)
	return p
}

// IsZero reports whether the params ask for the plain whole table
func (p *Params) IsZero() bool {
	return p == nil || (!p.Paged && p.Search == "" && p.Sort == "" && p.From == "" && p.To == "")
}

// GetMeta calculates pagination metadata
func GetMeta(params *Params, total int64) *Meta {
	totalPages := int(total) / params.Limit
	if int(total)%params.Limit > 0 {
		totalPages++
	}

	return &Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Response represents paginated response
type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta"`
}

// NewResponse creates a new paginated response
func NewResponse(data interface{}, params *Params, total int64) *Response {
	return &Response{
		Data: data,
		Meta: GetMeta(params, total),
	}
}
