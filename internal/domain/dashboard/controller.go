package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rxportal/portal/internal/platform/backend"
)

// Backend is the slice of the analysis API the patient dashboard consumes.
type Backend interface {
	ListUserPrescriptions(ctx context.Context, userID int) ([]*backend.Prescription, error)
	Analyze(ctx context.Context, ar backend.AnalyzeRequest) error
	DeletePrescription(ctx context.Context, id int) error
}

const maxUploadBytes = 16 << 20

var allowedFileTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
	"text/plain":      true,
}

// ErrSubmissionInFlight is returned when a submission arrives while an
// earlier one has not finished.
var ErrSubmissionInFlight = fmt.Errorf("a submission is already in progress")

// ErrNothingToSubmit is returned when neither text nor a file is staged.
var ErrNothingToSubmit = fmt.Errorf("Please enter prescription text or upload a file")

// PendingFile is a staged upload held until submission.
type PendingFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Controller holds one signed-in patient's dashboard state: the fetched
// prescription list, the staged submission input, and expand/collapse flags.
// All state mutations are serialized by the controller lock.
type Controller struct {
	mu         sync.Mutex
	backend    Backend
	userID     int
	rows       []*backend.Prescription
	loaded     bool
	expanded   map[int]bool
	text       string
	file       *PendingFile
	submitting bool
}

func NewController(b Backend, userID int) *Controller {
	return &Controller{backend: b, userID: userID, expanded: make(map[int]bool)}
}

// Refresh replaces the list with a fresh fetch. The previous list survives a
// failed fetch.
func (ctl *Controller) Refresh(ctx context.Context) error {
	rows, err := ctl.backend.ListUserPrescriptions(ctx, ctl.userID)
	if err != nil {
		return err
	}
	ctl.mu.Lock()
	ctl.rows = rows
	ctl.loaded = true
	ctl.mu.Unlock()
	return nil
}

// EnsureLoaded fetches the list only when nothing has been loaded yet.
// Filter changes are served from the in-memory list without a new fetch.
func (ctl *Controller) EnsureLoaded(ctx context.Context) error {
	ctl.mu.Lock()
	loaded := ctl.loaded
	ctl.mu.Unlock()
	if loaded {
		return nil
	}
	return ctl.Refresh(ctx)
}

// Prescriptions returns the current list.
func (ctl *Controller) Prescriptions() []*backend.Prescription {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	out := make([]*backend.Prescription, len(ctl.rows))
	copy(out, ctl.rows)
	return out
}

// SetText stages prescription text for the next submission.
func (ctl *Controller) SetText(text string) {
	ctl.mu.Lock()
	ctl.text = text
	ctl.mu.Unlock()
}

// AttachFile stages an upload. Disallowed types and oversized files are
// refused and nothing stays selected.
func (ctl *Controller) AttachFile(name, contentType string, data []byte) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if !allowedFileTypes[contentType] {
		ctl.file = nil
		return fmt.Errorf("Please select a valid file type (JPEG, PNG, GIF, PDF, or TXT)")
	}
	if len(data) > maxUploadBytes {
		ctl.file = nil
		return fmt.Errorf("File size must be less than 16MB")
	}
	ctl.file = &PendingFile{Name: name, ContentType: contentType, Data: data}
	return nil
}

// Input returns the staged text and file.
func (ctl *Controller) Input() (string, *PendingFile) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.text, ctl.file
}

// Submit sends the staged input for analysis. At most one submission runs at
// a time. On success the input is cleared and the list re-fetched; on failure
// the input stays for a retry.
func (ctl *Controller) Submit(ctx context.Context) error {
	ctl.mu.Lock()
	if ctl.submitting {
		ctl.mu.Unlock()
		return ErrSubmissionInFlight
	}
	text, file := ctl.text, ctl.file
	if strings.TrimSpace(text) == "" && file == nil {
		ctl.mu.Unlock()
		return ErrNothingToSubmit
	}
	ctl.submitting = true
	ctl.mu.Unlock()

	defer func() {
		ctl.mu.Lock()
		ctl.submitting = false
		ctl.mu.Unlock()
	}()

	ar := backend.AnalyzeRequest{UserID: ctl.userID, Text: text}
	if file != nil {
		ar.FileName = file.Name
		ar.FileType = file.ContentType
		ar.File = bytes.NewReader(file.Data)
	}
	if err := ctl.backend.Analyze(ctx, ar); err != nil {
		return err
	}

	ctl.mu.Lock()
	ctl.text = ""
	ctl.file = nil
	ctl.mu.Unlock()

	// The new row comes from the backend, not an optimistic insert.
	return ctl.Refresh(ctx)
}

// ToggleExpanded flips one prescription's detail panel.
func (ctl *Controller) ToggleExpanded(id int) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.expanded[id] = !ctl.expanded[id]
	return ctl.expanded[id]
}

// Expanded reports a panel's state.
func (ctl *Controller) Expanded(id int) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.expanded[id]
}

// Delete removes a prescription. On success the row is dropped from the
// local list without a re-fetch; on failure the list is untouched.
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
