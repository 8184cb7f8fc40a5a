package dashboard

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rxportal/portal/internal/platform/backend"
	"github.com/rxportal/portal/internal/platform/session"
)

// Handler exposes the patient dashboard. Each session gets its own
// Controller, created lazily and dropped with the session token.
type Handler struct {
	mu          sync.Mutex
	backend     Backend
	controllers map[string]*Controller
}

func NewHandler(b Backend) *Handler {
	return &Handler{backend: b, controllers: make(map[string]*Controller)}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/prescriptions", h.Submit)
	g.POST("/prescriptions/:id/toggle", h.Toggle)
	g.DELETE("/prescriptions/:id", h.Delete)
	g.POST("/prescriptions/:id/export", h.ExportStub)
}

func (h *Handler) controller(c echo.Context) *Controller {
	sess := session.FromContext(c)
	h.mu.Lock()
	defer h.mu.Unlock()
	ctl, ok := h.controllers[sess.Token]
	if !ok {
		ctl = NewController(h.backend, sess.User.ID)
		h.controllers[sess.Token] = ctl
	}
	return ctl
}

// List applies the search and date filters from the query string to the
// in-memory list. The list is fetched on first use; filter changes never
// trigger a new fetch. refresh=true forces one.
func (h *Handler) List(c echo.Context) error {
	ctl := h.controller(c)
	var err error
	if c.QueryParam("refresh") == "true" {
		err = ctl.Refresh(c.Request().Context())
	} else {
		err = ctl.EnsureLoaded(c.Request().Context())
	}
	if err != nil {
		return backendError(c, err, "Failed to load prescriptions. Please try again.")
	}
	all := ctl.Prescriptions()
	filtered := Filter(all, c.QueryParam("search"), c.QueryParam("date"), time.Now())

	rows := make([]map[string]interface{}, len(filtered))
	for i, p := range filtered {
		rows[i] = map[string]interface{}{
			"id":        p.ID,
			"raw_text":  p.RawText,
			"file_path": p.FilePath,
			"file_type": p.FileType,
			"analysis":  p.Analysis,
			"timestamp": p.Timestamp,
			"status":    p.Status,
			"expanded":  ctl.Expanded(p.ID),
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":          session.FromContext(c).User,
		"prescriptions": rows,
		"total":         len(all),
		"matched":       len(filtered),
	})
}

// Submit stages the form input on the session controller and sends it for
// analysis.
func (h *Handler) Submit(c echo.Context) error {
	ctl := h.controller(c)
	ctl.SetText(c.FormValue("text"))

	if file, err := c.FormFile("file"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
		}
		if err := ctl.AttachFile(file.Filename, file.Header.Get("Content-Type"), data); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	err := ctl.Submit(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, map[string]string{
			"message": "Prescription submitted for review! Our medical team will analyze it and provide you with detailed information.",
		})
	case errors.Is(err, ErrSubmissionInFlight):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNothingToSubmit):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return backendError(c, err, "Submission failed. Please try again.")
	}
}

// Toggle flips one prescription's detail panel.
func (h *Handler) Toggle(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	expanded := h.controller(c).ToggleExpanded(id)
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id, "expanded": expanded})
}

// Delete removes a prescription from the backend and the local list.
func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.controller(c).Delete(c.Request().Context(), id); err != nil {
		return backendError(c, err, "Failed to delete prescription")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Prescription deleted successfully"})
}

func (h *Handler) ExportStub(c echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, "PDF export feature coming soon!")
}

// DropSession discards a session's controller state.
func (h *Handler) DropSession(token string) {
	h.mu.Lock()
	delete(h.controllers, token)
	h.mu.Unlock()
}

func backendError(c echo.Context, err error, fallback string) error {
	if apiErr, ok := backend.AsAPIError(err); ok {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return c.JSON(apiErr.StatusCode, map[string]string{"error": msg})
	}
	return c.JSON(http.StatusBadGateway, map[string]string{"error": fallback})
}
