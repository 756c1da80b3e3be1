package vault

import (
	"strings"
	"testing"
	"time"

	"github.com/abduss/certvault/internal/certificate"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatchesTitleOrDescriptionIgnoringCase(t *testing.T) {
	certs := []certificate.Certificate{
		cert("AWS Solutions Architect", "", day(2024, 3, 10)),
		cert("First Aid", "Red Cross aws-free course", day(2024, 3, 2)),
		cert("Go Fundamentals", "", day(2024, 2, 20)),
		cert("STRASSE Diploma", "", day(2024, 1, 5)),
	}

	got := Filter(certs, "AwS")
	require.Len(t, got, 2)
	assert.Equal(t, "AWS Solutions Architect", got[0].Title)
	assert.Equal(t, "First Aid", got[1].Title)

	folded := Filter(certs, "straße")
	require.Len(t, folded, 1)
	assert.Equal(t, "STRASSE Diploma", folded[0].Title)
}

func TestFilterEmptyQueryKeepsEverything(t *testing.T) {
	certs := []certificate.Certificate{
		cert("A", "", day(2024, 3, 10)),
		cert("B", "", day(2024, 3, 2)),
	}

	got := Filter(certs, "")
	assert.Equal(t, certs, got)

	got[0].Title = "changed"
	assert.Equal(t, "A", certs[0].Title, "filter must not alias its input")
}

func TestFilterResultIsExactlyThePredicate(t *testing.T) {
	certs := []certificate.Certificate{
		cert("Kubernetes Admin", "cka", day(2024, 5, 1)),
		cert("Terraform Associate", "hashicorp", day(2024, 4, 1)),
		cert("Kubernetes Dev", "ckad", day(2024, 3, 1)),
		cert("Vault", "", day(2024, 2, 1)),
	}

	for _, query := range []string{"kube", "CK", "corp", "zzz", "a"} {
		got := Filter(certs, query)
		seen := make(map[uuid.UUID]int)
		for _, c := range got {
			seen[c.ID]++
		}
		for _, c := range certs {
			want := 0
			if containsFold(c.Title, query) || (c.Description != nil && containsFold(*c.Description, query)) {
				want = 1
			}
			assert.Equal(t, want, seen[c.ID], "query %q title %q", query, c.Title)
		}
	}
}

func TestGroupByMonthPreservesOrder(t *testing.T) {
	certs := []certificate.Certificate{
		cert("d", "", day(2024, 3, 20)),
		cert("c", "", day(2024, 3, 1)),
		cert("b", "", day(2024, 2, 14)),
		cert("a", "", day(2023, 3, 9)),
	}

	groups := GroupByMonth(certs, time.UTC)
	require.Len(t, groups, 3)
	assert.Equal(t, "March 2024", groups[0].Label)
	assert.Equal(t, "February 2024", groups[1].Label)
	assert.Equal(t, "March 2023", groups[2].Label, "same month in another year is its own group")

	var flattened []certificate.Certificate
	for _, g := range groups {
		flattened = append(flattened, g.Certificates...)
	}
	assert.Equal(t, certs, flattened)
}

func TestGroupByMonthUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	certs := []certificate.Certificate{cert("late", "", time.Date(2024, 4, 1, 2, 0, 0, 0, time.UTC))}

	assert.Equal(t, "April 2024", GroupByMonth(certs, time.UTC)[0].Label)
	assert.Equal(t, "March 2024", GroupByMonth(certs, loc)[0].Label)
}

func TestArrangeEmpty(t *testing.T) {
	groups := Arrange(nil, "anything", nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestSummarizeCountsMonthAndYear(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	certs := []certificate.Certificate{
		cert("1", "", day(2024, 3, 14)),
		cert("2", "", day(2024, 3, 1)),
		cert("3", "", day(2024, 2, 1)),
		cert("4", "", day(2023, 3, 20)),
		cert("5", "", day(2023, 1, 1)),
		cert("6", "", day(2022, 1, 1)),
	}

	summary := Summarize(certs, now, time.UTC, 5)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 2, summary.ThisMonth)
	require.Len(t, summary.Recent, 5)
	assert.Equal(t, "1", summary.Recent[0].Title)

	assert.Len(t, Summarize(certs[:2], now, time.UTC, 5).Recent, 2)
}

// --- helpers & fakes ---

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func cert(title, description string, created time.Time) certificate.Certificate {
	c := certificate.Certificate{
		ID:        uuid.New(),
		Title:     title,
		FileURL:   "http://vault.local/v1/signed/owner/" + title + ".pdf?token=t",
		FileName:  title + ".pdf",
		FileSize:  1024,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if description != "" {
		c.Description = &description
	}
	return c
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
