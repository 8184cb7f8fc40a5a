package admin

import (
	"fmt"
	"strings"

	"github.com/rxportal/portal/internal/platform/backend"
)

// EditForm is the working copy of one prescription's analysis while a
// reviewer edits it. List fields on medicines are edited as comma-separated
// text and parsed back on every update.
type EditForm struct {
	Medicines       []backend.Medicine
	Explanation     string
	NutritionTips   []string
	FoodToAvoid     string
	Recommendations []string
}

// NewEditForm seeds the form from the current analysis. Every field gets a
// typed empty value so the form never carries nils.
func NewEditForm(a *backend.Analysis) *EditForm {
	f := &EditForm{
		Medicines:       []backend.Medicine{},
		NutritionTips:   []string{},
		Recommendations: []string{},
	}
	if a == nil {
		return f
	}
	f.Explanation = a.Explanation
	f.FoodToAvoid = a.FoodToAvoid
	for _, m := range a.Medicines {
		c := m
		c.Alternatives = append([]string{}, m.Alternatives...)
		c.SideEffects = append([]string{}, m.SideEffects...)
		c.FoodToAvoid = append([]string{}, m.FoodToAvoid...)
		f.Medicines = append(f.Medicines, c)
	}
	f.NutritionTips = append(f.NutritionTips, a.NutritionTips...)
	f.Recommendations = append(f.Recommendations, a.Recommendations...)
	return f
}

// AddMedicine appends a blank entry for the reviewer to fill in.
func (f *EditForm) AddMedicine() {
	f.Medicines = append(f.Medicines, backend.Medicine{
		Alternatives: []string{},
		SideEffects:  []string{},
		FoodToAvoid:  []string{},
	})
}

func (f *EditForm) RemoveMedicine(i int) error {
	if i < 0 || i >= len(f.Medicines) {
		return fmt.Errorf("no medicine at index %d", i)
	}
	f.Medicines = append(f.Medicines[:i], f.Medicines[i+1:]...)
	return nil
}

// UpdateMedicine sets one text field of a medicine entry.
func (f *EditForm) UpdateMedicine(i int, field, value string) error {
	if i < 0 || i >= len(f.Medicines) {
		return fmt.Errorf("no medicine at index %d", i)
	}
	m := &f.Medicines[i]
	switch field {
	case "name":
		m.Name = value
	case "price":
		m.Price = value
	case "dosage":
		m.Dosage = value
	case "frequency":
		m.Frequency = value
	case "duration":
		m.Duration = value
	case "purpose":
		m.Purpose = value
	default:
		return fmt.Errorf("unknown medicine field %q", field)
	}
	return nil
}

// UpdateMedicineList replaces one list field of a medicine entry from
// comma-separated text.
func (f *EditForm) UpdateMedicineList(i int, field, raw string) error {
	if i < 0 || i >= len(f.Medicines) {
		return fmt.Errorf("no medicine at index %d", i)
	}
	items := splitList(raw)
	m := &f.Medicines[i]
	switch field {
	case "alternatives":
		m.Alternatives = items
	case "side_effects":
		m.SideEffects = items
	case "foodToAvoid":
		m.FoodToAvoid = items
	default:
		return fmt.Errorf("unknown medicine list field %q", field)
	}
	return nil
}

func (f *EditForm) AddNutritionTip() { f.NutritionTips = append(f.NutritionTips, "") }

func (f *EditForm) UpdateNutritionTip(i int, value string) error {
	if i < 0 || i >= len(f.NutritionTips) {
		return fmt.Errorf("no nutrition tip at index %d", i)
	}
	f.NutritionTips[i] = value
	return nil
}

func (f *EditForm) RemoveNutritionTip(i int) error {
	if i < 0 || i >= len(f.NutritionTips) {
		return fmt.Errorf("no nutrition tip at index %d", i)
	}
	f.NutritionTips = append(f.NutritionTips[:i], f.NutritionTips[i+1:]...)
	return nil
}

func (f *EditForm) AddRecommendation() { f.Recommendations = append(f.Recommendations, "") }

func (f *EditForm) UpdateRecommendation(i int, value string) error {
	if i < 0 || i >= len(f.Recommendations) {
		return fmt.Errorf("no recommendation at index %d", i)
	}
	f.Recommendations[i] = value
	return nil
}

func (f *EditForm) RemoveRecommendation(i int) error {
	if i < 0 || i >= len(f.Recommendations) {
		return fmt.Errorf("no recommendation at index %d", i)
	}
	f.Recommendations = append(f.Recommendations[:i], f.Recommendations[i+1:]...)
	return nil
}

func (f *EditForm) SetExplanation(v string) { f.Explanation = v }
func (f *EditForm) SetFoodToAvoid(v string) { f.FoodToAvoid = v }

// clone returns a fully independent copy. Snapshots leave the controller
// lock, so they must not share backing arrays with the live form.
func (f *EditForm) clone() *EditForm {
	c := &EditForm{
		Explanation:     f.Explanation,
		FoodToAvoid:     f.FoodToAvoid,
		Medicines:       make([]backend.Medicine, 0, len(f.Medicines)),
		NutritionTips:   append([]string{}, f.NutritionTips...),
		Recommendations: append([]string{}, f.Recommendations...),
	}
	for _, m := range f.Medicines {
		mc := m
		mc.Alternatives = append([]string{}, m.Alternatives...)
		mc.SideEffects = append([]string{}, m.SideEffects...)
		mc.FoodToAvoid = append([]string{}, m.FoodToAvoid...)
		c.Medicines = append(c.Medicines, mc)
	}
	return c
}

// Analysis renders the form back into the wire shape, detached from the live
// form. Confidence is set by the caller on save.
func (f *EditForm) Analysis() *backend.Analysis {
	c := f.clone()
	return &backend.Analysis{
		Medicines:       c.Medicines,
		Explanation:     c.Explanation,
		NutritionTips:   c.NutritionTips,
		FoodToAvoid:     c.FoodToAvoid,
		Recommendations: c.Recommendations,
	}
}

// splitList parses comma-separated text into trimmed items, dropping empties.
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
