package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rxportal/portal/internal/platform/backend"
	"github.com/rxportal/portal/internal/platform/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/register", h.Register)
	e.POST("/login", h.SignIn)
	e.POST("/logout", h.SignOut)

	// Affordances the UI exposes but the product has not built yet.
	e.POST("/auth/oauth/:provider", h.OAuthStub)
	e.POST("/auth/password-reset", h.PasswordResetStub)
}

func (h *Handler) Register(c echo.Context) error {
	var f RegistrationForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	errs, err := h.svc.Register(c.Request().Context(), f)
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"errors": errs})
	}
	if err != nil {
		return backendError(c, err, "Registration failed. Please try again.")
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"message":  "User registered successfully",
		"redirect": "/login",
	})
}

func (h *Handler) SignIn(c echo.Context) error {
	var body struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.SignIn(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return backendError(c, err, "Login failed")
	}
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":     sess.User,
		"token":    sess.Token,
		"redirect": "/dashboard",
	})
}

func (h *Handler) SignOut(c echo.Context) error {
	h.svc.SignOut(session.TokenFromRequest(c))
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.JSON(http.StatusOK, map[string]string{"redirect": "/login"})
}

func (h *Handler) OAuthStub(c echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, c.Param("provider")+" login coming soon")
}

func (h *Handler) PasswordResetStub(c echo.Context) error {
	return echo.NewHTTPError(http.StatusNotImplemented, "password reset coming soon")
}

// backendError surfaces the backend's own message with its status; transport
// failures collapse to a generic retry message.
func backendError(c echo.Context, err error, fallback string) error {
	if apiErr, ok := backend.AsAPIError(err); ok {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return c.JSON(apiErr.StatusCode, map[string]string{"error": msg})
	}
	return c.JSON(http.StatusBadGateway, map[string]string{"error": "An error occurred. Please try again."})
}
