package client

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortOldest  SortOrder = "oldest"
	SortHighest SortOrder = "highest"
	SortLowest  SortOrder = "lowest"
)

// Filter narrows and orders display records. Zero-valued fields do not
// filter.
type Filter struct {
	Search    string // matched against message, keyword and both addresses
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Address   string // substring of either address
	From      time.Time
	To        time.Time
	SortBy    SortOrder // defaults to newest
}

// Active counts the filtering criteria in use, ignoring the sort order.
func (f Filter) Active() int {
	n := 0
	if f.Search != "" {
		n++
	}
	if f.MinAmount != nil {
		n++
	}
	if f.MaxAmount != nil {
		n++
	}
	if f.Address != "" {
		n++
	}
	if !f.From.IsZero() {
		n++
	}
	if !f.To.IsZero() {
		n++
	}
	return n
}

// Apply returns the matching records in the requested order. records is not
// modified.
func (f Filter) Apply(records []DisplayRecord) []DisplayRecord {
	search := strings.ToLower(f.Search)
	address := strings.ToLower(f.Address)

	out := make([]DisplayRecord, 0, len(records))
	for _, r := range records {
		from := strings.ToLower(r.AddressFrom.Hex())
		to := strings.ToLower(r.AddressTo.Hex())

		if search != "" &&
			!strings.Contains(strings.ToLower(r.Message), search) &&
			!strings.Contains(strings.ToLower(r.Keyword), search) &&
			!strings.Contains(to, search) &&
			!strings.Contains(from, search) {
			continue
		}
		if f.MinAmount != nil && r.Amount.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && r.Amount.GreaterThan(*f.MaxAmount) {
			continue
		}
		if address != "" && !strings.Contains(to, address) && !strings.Contains(from, address) {
			continue
		}
		if !f.From.IsZero() && r.Time.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Time.After(f.To) {
			continue
		}
		out = append(out, r)
	}

	slices.SortStableFunc(out, f.compare)
	return out
}

func (f Filter) compare(a, b DisplayRecord) int {
	switch f.SortBy {
	case SortOldest:
		return cmp.Or(a.Time.Compare(b.Time), cmp.Compare(a.Index, b.Index))
	case SortHighest:
		return cmp.Or(b.Amount.Cmp(a.Amount), cmp.Compare(b.Index, a.Index))
	case SortLowest:
		return cmp.Or(a.Amount.Cmp(b.Amount), cmp.Compare(a.Index, b.Index))
	default:
		return cmp.Or(b.Time.Compare(a.Time), cmp.Compare(b.Index, a.Index))
	}
}

// ParseSortOrder accepts the four sort names; anything else is newest.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(s)); o {
	case SortOldest, SortHighest, SortLowest:
		return o
	}
	return SortNewest
}
