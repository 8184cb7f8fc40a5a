package dashboard

import (
	"strings"
	"time"

	"github.com/rxportal/portal/internal/platform/backend"
)

// Date buckets for the history list.
const (
	DateAll   = "all"
	DateToday = "today"
	DateWeek  = "week"
)

// noExplanation mirrors the fallback shown when an analysis has no
// explanation text; the search predicate matches against it too.
const noExplanation = "No explanation available"

// Filter narrows a prescription list by search text and date bucket without
// touching the backend. Both conditions must hold and input order is kept.
func Filter(list []*backend.Prescription, query, bucket string, now time.Time) []*backend.Prescription {
	out := make([]*backend.Prescription, 0, len(list))
	for _, p := range list {
		if matchesQuery(p, query) && matchesBucket(p, bucket, now) {
			out = append(out, p)
		}
	}
	return out
}

// matchesQuery reports whether the query appears in any medicine name or
// purpose, or in the explanation. Empty queries match everything.
func matchesQuery(p *backend.Prescription, query string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return true
	}
	if p.Analysis != nil {
		for _, m := range p.Analysis.Medicines {
			if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.Purpose), q) {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(explanation(p)), q)
}

// matchesBucket applies the date filter: "today" is calendar-date equality,
// "week" is a rolling 7x24h window. Unknown buckets behave like "all".
func matchesBucket(p *backend.Prescription, bucket string, now time.Time) bool {
	switch bucket {
	case DateToday:
		t := p.Time()
		y1, m1, d1 := t.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case DateWeek:
		return p.Time().After(now.Add(-7 * 24 * time.Hour))
	default:
		return true
	}
}

func explanation(p *backend.Prescription) string {
	if p.Analysis == nil || p.Analysis.Explanation == "" {
		return noExplanation
	}
	return p.Analysis.Explanation
}
