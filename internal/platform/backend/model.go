package backend

import "time"

// TimeLayout is the timestamp format the analysis backend emits on
// prescription rows.
const TimeLayout = "2006-01-02 15:04"

// Medicine is one entry of an analysis. The list-shaped fields are what the
// moderation edit form manages as comma-separated text.
type Medicine struct {
	Name         string   `json:"name"`
	Price        string   `json:"price,omitempty"`
	Dosage       string   `json:"dosage,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	SideEffects  []string `json:"side_effects,omitempty"`
	FoodToAvoid  []string `json:"foodToAvoid,omitempty"`
}

// Analysis is the structured result attached to a prescription. FoodToAvoid
// here is a single free-text field; the per-medicine one is a list.
type Analysis struct {
	Medicines       []Medicine `json:"medicines"`
	Explanation     string     `json:"explanation"`
	NutritionTips   []string   `json:"nutrition_tips"`
	FoodToAvoid     string     `json:"foodToAvoid,omitempty"`
	Confidence      float64    `json:"analysis_confidence"`
	Recommendations []string   `json:"recommendations"`
}

// Owner identifies the submitting user on admin prescription rows.
type Owner struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Prescription struct {
	ID        int       `json:"id"`
	RawText   string    `json:"raw_text"`
	FilePath  string    `json:"file_path,omitempty"`
	FileType  string    `json:"file_type,omitempty"`
	Analysis  *Analysis `json:"analysis"`
	Timestamp string    `json:"timestamp"`
	Status    string    `json:"status"`
	Owner     *Owner    `json:"user,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// Time parses the row timestamp. The zero time is returned when the backend
// sent something unparseable, which sorts such rows out of the date buckets.
func (p *Prescription) Time() time.Time {
	t, err := time.ParseInLocation(TimeLayout, p.Timestamp, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Normalize fills the optional analysis fields with typed empty values so
// callers never branch on nil.
func (p *Prescription) Normalize() {
	if p.Analysis == nil {
		p.Analysis = &Analysis{}
	}
	a := p.Analysis
	if a.Medicines == nil {
		a.Medicines = []Medicine{}
	}
	if a.NutritionTips == nil {
		a.NutritionTips = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	for i := range a.Medicines {
		m := &a.Medicines[i]
		if m.Alternatives == nil {
			m.Alternatives = []string{}
		}
		if m.SideEffects == nil {
			m.SideEffects = []string{}
		}
		if m.FoodToAvoid == nil {
			m.FoodToAvoid = []string{}
		}
	}
}

// Account is the signed-in user record returned by the login endpoint.
type Account struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
}

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	Prescriptions int    `json:"prescriptions"`
	LastActive    string `json:"lastActive"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Registration is the payload for creating an account.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
}
