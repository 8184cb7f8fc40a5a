package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rxportal/portal/internal/platform/backend"
)

// Backend is the slice of the analysis API the moderation dashboard consumes.
type Backend interface {
	ListAllPrescriptions(ctx context.Context) ([]*backend.Prescription, error)
	ListUsers(ctx context.Context) ([]*backend.UserSummary, error)
	UpdatePrescription(ctx context.Context, id int, status string, analysis *backend.Analysis) error
	ApprovePrescription(ctx context.Context, id int) error
	RejectPrescription(ctx context.Context, id int, reason string) error
	DeletePrescription(ctx context.Context, id int) error
}

// savedConfidence is stamped on every analysis saved through the edit form.
const savedConfidence = 0.9

// ErrNoEdit is returned by form operations when nothing is being edited.
var ErrNoEdit = fmt.Errorf("no edit in progress")

// ErrReasonRequired is returned when a rejection carries no reason. The
// backend is not called in that case.
var ErrReasonRequired = fmt.Errorf("a rejection reason is required")

// Controller holds one reviewer's moderation state. At most one prescription
// is in edit at a time; starting another edit replaces the current one.
type Controller struct {
	mu        sync.Mutex
	backend   Backend
	rows      []*backend.Prescription
	loaded    bool
	users     []*backend.UserSummary
	editingID int
	form      *EditForm
	viewOpen  map[int]bool
	editOpen  map[int]bool
}

func NewController(b Backend) *Controller {
	return &Controller{backend: b, viewOpen: make(map[int]bool), editOpen: make(map[int]bool)}
}

// RefreshPrescriptions re-fetches the moderation queue. The previous list
// survives a failed fetch.
func (ctl *Controller) RefreshPrescriptions(ctx context.Context) error {
	rows, err := ctl.backend.ListAllPrescriptions(ctx)
	if err != nil {
		return err
	}
	ctl.mu.Lock()
	ctl.rows = rows
	ctl.loaded = true
	ctl.mu.Unlock()
	return nil
}

// EnsureLoaded fetches the queue only when nothing has been loaded yet.
// Filter changes are served from the in-memory list without a new fetch.
func (ctl *Controller) EnsureLoaded(ctx context.Context) error {
	ctl.mu.Lock()
	loaded := ctl.loaded
	ctl.mu.Unlock()
	if loaded {
		return nil
	}
	return ctl.RefreshPrescriptions(ctx)
}

// RefreshUsers re-fetches the user listing.
func (ctl *Controller) RefreshUsers(ctx context.Context) error {
	users, err := ctl.backend.ListUsers(ctx)
	if err != nil {
		return err
	}
	ctl.mu.Lock()
	ctl.users = users
	ctl.mu.Unlock()
	return nil
}

func (ctl *Controller) Prescriptions() []*backend.Prescription {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	out := make([]*backend.Prescription, len(ctl.rows))
	copy(out, ctl.rows)
	return out
}

func (ctl *Controller) Users() []*backend.UserSummary {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	out := make([]*backend.UserSummary, len(ctl.users))
	copy(out, ctl.users)
	return out
}

// StartEdit seeds the edit form from a prescription's current analysis.
// Any edit already in progress is discarded.
func (ctl *Controller) StartEdit(id int) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	for _, p := range ctl.rows {
		if p.ID == id {
			ctl.editingID = id
			ctl.form = NewEditForm(p.Analysis)
			return nil
		}
	}
	return fmt.Errorf("prescription %d not found", id)
}

// CancelEdit discards the working copy.
func (ctl *Controller) CancelEdit() {
	ctl.mu.Lock()
	ctl.editingID = 0
	ctl.form = nil
	ctl.mu.Unlock()
}

// Editing reports which prescription is in edit, zero when none is.
func (ctl *Controller) Editing() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.editingID
}

// WithForm runs one mutation against the working copy under the lock.
func (ctl *Controller) WithForm(id int, fn func(*EditForm) error) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.form == nil || ctl.editingID != id {
		return ErrNoEdit
	}
	return fn(ctl.form)
}

// Form returns a snapshot of the working copy for rendering. The snapshot is
// detached so it can be marshalled outside the lock.
func (ctl *Controller) Form(id int) (*EditForm, error) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.form == nil || ctl.editingID != id {
		return nil, ErrNoEdit
	}
	return ctl.form.clone(), nil
}

// SaveEdit writes the edited analysis back, marking the prescription approved
// with the fixed review confidence. On success the queue is re-fetched and the
// form cleared; on failure the working copy stays for a retry.
func (ctl *Controller) SaveEdit(ctx context.Context) error {
	ctl.mu.Lock()
	if ctl.form == nil {
		ctl.mu.Unlock()
		return ErrNoEdit
	}
	id := ctl.editingID
	analysis := ctl.form.Analysis()
	analysis.Confidence = savedConfidence
	ctl.mu.Unlock()

	if err := ctl.backend.UpdatePrescription(ctx, id, "approved", analysis); err != nil {
		return err
	}

	// An edit for another row may have started during the round-trip; only
	// clear the state this save owns.
	ctl.mu.Lock()
	if ctl.editingID == id {
		ctl.editingID = 0
		ctl.form = nil
	}
	ctl.mu.Unlock()
	return ctl.RefreshPrescriptions(ctx)
}

// Approve marks a prescription approved and re-fetches the queue.
func (ctl *Controller) Approve(ctx context.Context, id int) error {
	if err := ctl.backend.ApprovePrescription(ctx, id); err != nil {
		return err
	}
	return ctl.RefreshPrescriptions(ctx)
}

// Reject marks a prescription rejected. A blank reason aborts before the
// backend is reached.
func (ctl *Controller) Reject(ctx context.Context, id int, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	if err := ctl.backend.RejectPrescription(ctx, id, reason); err != nil {
		return err
	}
	return ctl.RefreshPrescriptions(ctx)
}

// Delete removes a prescription. On success the row is dropped from the local
// list without a re-fetch; on failure the list is untouched.
func (ctl *Controller) Delete(ctx context.Context, id int) error {
	if err := ctl.backend.DeletePrescription(ctx, id); err != nil {
		return err
	}
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	kept := ctl.rows[:0]
	for _, p := range ctl.rows {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	ctl.rows = kept
	return nil
}

// ToggleView flips a row's read-only detail panel.
func (ctl *Controller) ToggleView(id int) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.viewOpen[id] = !ctl.viewOpen[id]
	return ctl.viewOpen[id]
}

// ToggleEdit flips a row's edit panel.
func (ctl *Controller) ToggleEdit(id int) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.editOpen[id] = !ctl.editOpen[id]
	return ctl.editOpen[id]
}
