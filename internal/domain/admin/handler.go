package admin

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/rxportal/portal/internal/platform/backend"
	"github.com/rxportal/portal/internal/platform/session"
)

// Handler exposes the moderation dashboard. Controllers are per session, so
// two reviewers never share edit state.
type Handler struct {
	mu          sync.Mutex
	backend     Backend
	controllers map[string]*Controller
}

func NewHandler(b Backend) *Handler {
	return &Handler{backend: b, controllers: make(map[string]*Controller)}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/prescriptions", h.ListPrescriptions)
	g.GET("/users", h.ListUsers)
	g.POST("/prescriptions/:id/edit", h.StartEdit)
	g.POST("/prescriptions/:id/cancel", h.CancelEdit)
	g.POST("/prescriptions/:id/form", h.EditFormOp)
	g.POST("/prescriptions/:id/save", h.SaveEdit)
	g.POST("/prescriptions/:id/approve", h.Approve)
	g.POST("/prescriptions/:id/reject", h.Reject)
	g.DELETE("/prescriptions/:id", h.Delete)
	g.POST("/prescriptions/:id/toggle", h.Toggle)
}

func (h *Handler) controller(c echo.Context) *Controller {
	sess := session.FromContext(c)
	h.mu.Lock()
	defer h.mu.Unlock()
	ctl, ok := h.controllers[sess.Token]
	if !ok {
		ctl = NewController(h.backend)
		h.controllers[sess.Token] = ctl
	}
	return ctl
}

// ListPrescriptions applies the search and status filters from the query
// string to the in-memory queue. The queue is fetched on first use; filter
// changes never trigger a new fetch. refresh=true forces one.
func (h *Handler) ListPrescriptions(c echo.Context) error {
	ctl := h.controller(c)
	var err error
	if c.QueryParam("refresh") == "true" {
		err = ctl.RefreshPrescriptions(c.Request().Context())
	} else {
		err = ctl.EnsureLoaded(c.Request().Context())
	}
	if err != nil {
		return backendError(c, err, "Failed to load prescriptions. Please try again.")
	}
	all := ctl.Prescriptions()
	filtered := Filter(all, c.QueryParam("search"), c.QueryParam("status"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"prescriptions": filtered,
		"total":         len(all),
		"matched":       len(filtered),
		"editing":       ctl.Editing(),
	})
}

// ListUsers fetches the registered user listing.
func (h *Handler) ListUsers(c echo.Context) error {
	ctl := h.controller(c)
	if err := ctl.RefreshUsers(c.Request().Context()); err != nil {
		return backendError(c, err, "Failed to load users. Please try again.")
	}
	users := ctl.Users()
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users, "total": len(users)})
}

// StartEdit opens the edit form seeded from the row's current analysis.
func (h *Handler) StartEdit(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	ctl := h.controller(c)
	if err := ctl.StartEdit(id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	form, _ := ctl.Form(id)
	return c.JSON(http.StatusOK, map[string]interface{}{"editing": id, "form": form})
}

func (h *Handler) CancelEdit(c echo.Context) error {
	if _, err := prescriptionID(c); err != nil {
		return err
	}
	h.controller(c).CancelEdit()
	return c.JSON(http.StatusOK, map[string]interface{}{"editing": 0})
}

// formOp is one mutation of the working copy.
type formOp struct {
	Op    string `json:"op"`
	Index int    `json:"index"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// EditFormOp applies one field mutation to the working copy and returns the
// updated form.
func (h *Handler) EditFormOp(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	var op formOp
	if err := c.Bind(&op); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form operation")
	}
	ctl := h.controller(c)
	err = ctl.WithForm(id, func(f *EditForm) error { return applyOp(f, op) })
	switch {
	case err == nil:
		form, _ := ctl.Form(id)
		return c.JSON(http.StatusOK, map[string]interface{}{"editing": id, "form": form})
	case errors.Is(err, ErrNoEdit):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

func applyOp(f *EditForm, op formOp) error {
	switch op.Op {
	case "add_medicine":
		f.AddMedicine()
		return nil
	case "remove_medicine":
		return f.RemoveMedicine(op.Index)
	case "update_medicine":
		return f.UpdateMedicine(op.Index, op.Field, op.Value)
	case "update_medicine_list":
		return f.UpdateMedicineList(op.Index, op.Field, op.Value)
	case "set_explanation":
		f.SetExplanation(op.Value)
		return nil
	case "set_food_to_avoid":
		f.SetFoodToAvoid(op.Value)
		return nil
	case "add_tip":
		f.AddNutritionTip()
		return nil
	case "update_tip":
		return f.UpdateNutritionTip(op.Index, op.Value)
	case "remove_tip":
		return f.RemoveNutritionTip(op.Index)
	case "add_recommendation":
		f.AddRecommendation()
		return nil
	case "update_recommendation":
		return f.UpdateRecommendation(op.Index, op.Value)
	case "remove_recommendation":
		return f.RemoveRecommendation(op.Index)
	default:
		return errors.New("unknown form operation")
	}
}

// SaveEdit writes the working copy back and closes the form.
func (h *Handler) SaveEdit(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	ctl := h.controller(c)
	if ctl.Editing() != id {
		return c.JSON(http.StatusConflict, map[string]string{"error": ErrNoEdit.Error()})
	}
	if err := ctl.SaveEdit(c.Request().Context()); err != nil {
		if errors.Is(err, ErrNoEdit) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return backendError(c, err, "Failed to update prescription")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Prescription updated successfully"})
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	if err := h.controller(c).Approve(c.Request().Context(), id); err != nil {
		return backendError(c, err, "Failed to approve prescription")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Prescription approved"})
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err = h.controller(c).Reject(c.Request().Context(), id, body.Reason)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"message": "Prescription rejected"})
	case errors.Is(err, ErrReasonRequired):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return backendError(c, err, "Failed to reject prescription")
	}
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	if err := h.controller(c).Delete(c.Request().Context(), id); err != nil {
		return backendError(c, err, "Failed to delete prescription")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Prescription deleted successfully"})
}

// Toggle flips a row's detail panel. The panel query parameter selects the
// read-only view or the edit preview, defaulting to the view.
func (h *Handler) Toggle(c echo.Context) error {
	id, err := prescriptionID(c)
	if err != nil {
		return err
	}
	ctl := h.controller(c)
	var open bool
	panel := c.QueryParam("panel")
	if panel == "edit" {
		open = ctl.ToggleEdit(id)
	} else {
		panel = "view"
		open = ctl.ToggleView(id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id, "panel": panel, "expanded": open})
}

// DropSession discards a session's moderation state.
func (h *Handler) DropSession(token string) {
	h.mu.Lock()
	delete(h.controllers, token)
	h.mu.Unlock()
}

func prescriptionID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
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
