package dashboard

import (
	"reflect"
	"testing"
	"time"

	"github.com/rxportal/portal/internal/platform/backend"
)

func rx(id int, ts string, analysis *backend.Analysis) *backend.Prescription {
	return &backend.Prescription{ID: id, Timestamp: ts, Analysis: analysis}
}

func analysisWith(name, purpose, explanation string) *backend.Analysis {
	return &backend.Analysis{
		Medicines:   []backend.Medicine{{Name: name, Purpose: purpose}},
		Explanation: explanation,
	}
}

func TestFilter_QueryMatchesMedicineFields(t *testing.T) {
	list := []*backend.Prescription{
		rx(1, "2025-03-01 10:00", analysisWith("Amoxicillin", "bacterial infection", "antibiotic course")),
		rx(2, "2025-03-01 10:00", analysisWith("Ibuprofen", "pain relief", "take with food")),
	}
	cases := []struct {
		query string
		want  []int
	}{
		{"amoxi", []int{1}},
		{"PAIN", []int{2}},
		{"with food", []int{2}},
		{"", []int{1, 2}},
		{"nothing here", nil},
	}
	for _, tc := range cases {
		got := Filter(list, tc.query, DateAll, time.Now())
		if len(got) != len(tc.want) { t.Errorf("query %q: expected %d rows, got %d", tc.query, len(tc.want), len(got)); continue }
		for i, p := range got {
			if p.ID != tc.want[i] { t.Errorf("query %q: expected id %d at %d, got %d", tc.query, tc.want[i], i, p.ID) }
		}
	}
}

func TestFilter_MissingAnalysisMatchesFallbackExplanation(t *testing.T) {
	list := []*backend.Prescription{rx(1, "2025-03-01 10:00", nil)}
	if got := Filter(list, "no explanation", DateAll, time.Now()); len(got) != 1 {
		t.Errorf("expected fallback explanation to match, got %d rows", len(got))
	}
	if got := Filter(list, "amoxicillin", DateAll, time.Now()); len(got) != 0 {
		t.Errorf("expected no match, got %d rows", len(got))
	}
}

func TestFilter_TodayIsCalendarDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 30, 0, 0, time.Local)
	list := []*backend.Prescription{
		rx(1, "2025-03-10 00:05", nil),
		rx(2, "2025-03-09 23:55", nil),
	}
	got := Filter(list, "", DateToday, now)
	if len(got) != 1 || got[0].ID != 1 { t.Fatalf("expected only today's row, got %v", got) }
}

func TestFilter_WeekIsRollingWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	list := []*backend.Prescription{
		rx(1, "2025-03-04 12:01", nil),
		rx(2, "2025-03-03 11:59", nil),
	}
	got := Filter(list, "", DateWeek, now)
	if len(got) != 1 || got[0].ID != 1 { t.Fatalf("expected only the row inside the window, got %v", got) }
}

func TestFilter_UnknownBucketMatchesAll(t *testing.T) {
	list := []*backend.Prescription{rx(1, "2001-01-01 00:00", nil)}
	if got := Filter(list, "", "fortnight", time.Now()); len(got) != 1 {
		t.Errorf("expected unknown bucket to behave like all, got %d rows", len(got))
	}
}

func TestFilter_Idempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	list := []*backend.Prescription{
		rx(1, "2025-03-10 09:00", analysisWith("Aspirin", "", "")),
		rx(2, "2025-03-01 09:00", analysisWith("Aspirin", "", "")),
		rx(3, "2025-03-10 10:00", analysisWith("Ibuprofen", "", "")),
	}
	once := Filter(list, "aspirin", DateToday, now)
	twice := Filter(once, "aspirin", DateToday, now)
	if !reflect.DeepEqual(once, twice) { t.Errorf("filtering an already-filtered list changed it: %v vs %v", once, twice) }
}

func TestFilter_BothConditionsMustHold(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	list := []*backend.Prescription{
		rx(1, "2025-03-10 09:00", analysisWith("Aspirin", "", "")),
		rx(2, "2025-03-01 09:00", analysisWith("Aspirin", "", "")),
	}
	got := Filter(list, "aspirin", DateToday, now)
	if len(got) != 1 || got[0].ID != 1 { t.Fatalf("expected one row matching both filters, got %v", got) }
}
