package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/rxportal/portal/internal/platform/backend"
)

func testAccount() *backend.Account {
	return &backend.Account{ID: 1, FirstName: "Ada", Email: "ada@example.com"}
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore("secret")
	sess, err := s.Create(testAccount())
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if sess.Token == "" { t.Fatal("expected minted token") }
	got, ok := s.Get(sess.Token)
	if !ok { t.Fatal("expected session lookup to succeed") }
	if got.User.Email != "ada@example.com" { t.Errorf("unexpected user %+v", got.User) }
}

func TestCreate_RequiresUser(t *testing.T) {
	s := NewStore("secret")
	if _, err := s.Create(nil); err == nil { t.Fatal("expected error") }
}

func TestGet_EmptyToken(t *testing.T) {
	s := NewStore("secret")
	if _, ok := s.Get(""); ok { t.Fatal("empty token must not authenticate") }
}

func TestDestroy(t *testing.T) {
	s := NewStore("secret")
	sess, _ := s.Create(testAccount())
	s.Destroy(sess.Token)
	if _, ok := s.Get(sess.Token); ok { t.Fatal("expected session gone after destroy") }
}

func TestDestroy_NotifiesListeners(t *testing.T) {
	s := NewStore("secret")
	var dropped []string
	s.OnDestroy(func(token string) { dropped = append(dropped, token) })
	s.OnDestroy(func(token string) { dropped = append(dropped, token) })
	sess, _ := s.Create(testAccount())
	s.Destroy(sess.Token)
	if len(dropped) != 2 { t.Fatalf("expected both listeners fired, got %d", len(dropped)) }
	if dropped[0] != sess.Token || dropped[1] != sess.Token { t.Errorf("expected listeners to receive the destroyed token, got %v", dropped) }
}

func TestMiddleware_RedirectsBrowser(t *testing.T) {
	s := NewStore("secret")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := Middleware(s)(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if err := h(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusFound { t.Errorf("expected 302, got %d", rec.Code) }
	if loc := rec.Header().Get("Location"); loc != "/login" { t.Errorf("expected redirect to /login, got %q", loc) }
}

func TestMiddleware_RejectsAPIRequest(t *testing.T) {
	s := NewStore("secret")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := Middleware(s)(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized { t.Fatalf("expected 401 HTTPError, got %v", err) }
}

func TestMiddleware_AdmitsCookieSession(t *testing.T) {
	s := NewStore("secret")
	sess, _ := s.Create(testAccount())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := Middleware(s)(func(c echo.Context) error {
		if FromContext(c) == nil { t.Error("expected session in context") }
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusOK { t.Errorf("expected 200, got %d", rec.Code) }
}

func TestMiddleware_AdmitsBearerToken(t *testing.T) {
	s := NewStore("secret")
	sess, _ := s.Create(testAccount())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/prescriptions", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := Middleware(s)(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if err := h(c); err != nil { t.Fatalf("unexpected error: %v", err) }
}

func TestMiddleware_UnknownTokenRejected(t *testing.T) {
	s := NewStore("secret")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := Middleware(s)(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if err := h(c); err == nil { t.Fatal("expected error for unknown token") }
}
