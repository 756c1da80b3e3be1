package vault

import (
	"strings"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"golang.org/x/text/cases"
)

// MonthLayout formats group labels, e.g. "March 2024".
const MonthLayout = "January 2006"

// Group is the set of certificates created in one calendar month.
type Group struct {
	Label        string                    `json:"label"`
	Certificates []certificate.Certificate `json:"certificates"`
}

// Filter keeps certificates whose title or description contains query,
// ignoring case. An empty query keeps everything. Input order is preserved.
func Filter(certs []certificate.Certificate, query string) []certificate.Certificate {
	out := make([]certificate.Certificate, 0, len(certs))
	if query == "" {
		return append(out, certs...)
	}

	fold := cases.Fold()
	needle := fold.String(query)
	for _, c := range certs {
		if strings.Contains(fold.String(c.Title), needle) {
			out = append(out, c)
			continue
		}
		if c.Description != nil && strings.Contains(fold.String(*c.Description), needle) {
			out = append(out, c)
		}
	}
	return out
}

// GroupByMonth buckets certificates by the month and year of CreatedAt in
// loc. Groups appear in first-occurrence order and members keep input
// order, so a newest-first input yields newest-first groups.
func GroupByMonth(certs []certificate.Certificate, loc *time.Location) []Group {
	if loc == nil {
		loc = time.UTC
	}

	groups := make([]Group, 0)
	index := make(map[string]int)
	for _, c := range certs {
		label := c.CreatedAt.In(loc).Format(MonthLayout)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Certificates = append(groups[i].Certificates, c)
	}
	return groups
}

// Arrange filters then groups.
func Arrange(certs []certificate.Certificate, query string, loc *time.Location) []Group {
	return GroupByMonth(Filter(certs, query), loc)
}

// Summary is the dashboard view of a collection.
type Summary struct {
	Total     int                       `json:"total"`
	ThisMonth int                       `json:"this_month"`
	Recent    []certificate.Certificate `json:"recent"`
}

// Summarize counts certificates and those created in the same calendar month
// and year as now, and keeps the first limit entries of the newest-first input.
func Summarize(certs []certificate.Certificate, now time.Time, loc *time.Location, limit int) Summary {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	if limit < 0 {
		limit = 0
	}

	summary := Summary{Total: len(certs), Recent: make([]certificate.Certificate, 0, limit)}
	for _, c := range certs {
		created := c.CreatedAt.In(loc)
		if created.Year() == now.Year() && created.Month() == now.Month() {
			summary.ThisMonth++
		}
	}
	if limit > len(certs) {
		limit = len(certs)
	}
	summary.Recent = append(summary.Recent, certs[:limit]...)
	return summary
}
