package client

import (
	"sort"
	"strings"
	"time"
)

// DefaultPageSize is the dashboard's table page size
const DefaultPageSize = 5

// Filter keeps the rows whose id, plate, driver, source, item or uom
// contain query, ignoring case. An empty query keeps every row.
func Filter(rows []Transaction, query string) []Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}

	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		for _, field := range []string{r.HumanID, r.PlateNumber, r.Driver, r.Source, r.ItemName, r.UnitOfMeasure} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// FilterDateRange keeps the rows picked up between from and to, both
// inclusive calendar days. A zero bound leaves that side open.
func FilterDateRange(rows []Transaction, from, to time.Time) []Transaction {
	if from.IsZero() && to.IsZero() {
		return rows
	}

	const day = "2006-01-02"
	lo, hi := "", ""
	if !from.IsZero() {
		lo = from.Format(day)
	}
	if !to.IsZero() {
		hi = to.Format(day)
	}

	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		d := r.PickupDate.Format(day)
		if (lo == "" || d >= lo) && (hi == "" || d <= hi) {
			out = append(out, r)
		}
	}
	return out
}

// ClassSummary is the dashboard card of one table
type ClassSummary struct {
	UniqueSources int `json:"uniqueSources"`
	TotalQty      int `json:"totalQty"`
}

// Summary holds the cards of both tables
type Summary struct {
	Inbound  ClassSummary `json:"inbound"`
	Outbound ClassSummary `json:"outbound"`
}

// Summarize counts distinct sumber_barang values and adds up qty
func Summarize(rows []Transaction) ClassSummary {
	sources := make(map[string]struct{}, len(rows))
	var s ClassSummary
	for _, r := range rows {
		sources[r.Source] = struct{}{}
		s.TotalQty += r.Quantity
	}
	s.UniqueSources = len(sources)
	return s
}

// less orders two rows by one column
var less = map[string]func(a, b Transaction) bool{
	"idtransaksivarchar": func(a, b Transaction) bool { return a.HumanID < b.HumanID },
	"tanggal_pickup":     func(a, b Transaction) bool { return a.PickupDate.Before(b.PickupDate) },
	"nopol":              func(a, b Transaction) bool { return a.PlateNumber < b.PlateNumber },
	"driver":             func(a, b Transaction) bool { return a.Driver < b.Driver },
	"sumber_barang":      func(a, b Transaction) bool { return a.Source < b.Source },
	"nama_barang":        func(a, b Transaction) bool { return a.ItemName < b.ItemName },
	"uom":                func(a, b Transaction) bool { return a.UnitOfMeasure < b.UnitOfMeasure },
	"qty":                func(a, b Transaction) bool { return a.Quantity < b.Quantity },
}

// SortBy returns a stably sorted copy of rows. Unknown columns leave the order unchanged.
func SortBy(rows []Transaction, column string, desc bool) []Transaction {
	out := append([]Transaction(nil), rows...)

	cmp, ok := less[column]
	if !ok {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return cmp(out[j], out[i])
		}
		return cmp(out[i], out[j])
	})
	return out
}

// Paginate returns page (1-based) of rows and the page count
func Paginate(rows []Transaction, page, size int) ([]Transaction, int) {
	if size < 1 {
		size = DefaultPageSize
	}
	pages := (len(rows) + size - 1) / size
	if page < 1 || page > pages {
		return []Transaction{}, pages
	}

	start := (page - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], pages
}
