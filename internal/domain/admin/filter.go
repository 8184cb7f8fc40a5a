package admin

import (
	"strings"

	"github.com/rxportal/portal/internal/platform/backend"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// Filter narrows the moderation queue by search text and status. The query is
// matched against the submitting user's name and email and against medicine
// names; the status must match exactly unless it is "all".
func Filter(list []*backend.Prescription, query, status string) []*backend.Prescription {
	out := make([]*backend.Prescription, 0, len(list))
	for _, p := range list {
		if matchesQuery(p, query) && matchesStatus(p, status) {
			out = append(out, p)
		}
	}
	return out
}

func matchesQuery(p *backend.Prescription, query string) bool {
	q := strings.ToLower(query)
	if q == "" {
		return true
	}
	if p.Owner != nil {
		if strings.Contains(strings.ToLower(p.Owner.Name), q) || strings.Contains(strings.ToLower(p.Owner.Email), q) {
			return true
		}
	}
	if p.Analysis != nil {
		for _, m := range p.Analysis.Medicines {
			if strings.Contains(strings.ToLower(m.Name), q) {
				return true
			}
		}
	}
	return false
}

func matchesStatus(p *backend.Prescription, status string) bool {
	return status == "" || status == StatusAll || p.Status == status
}
