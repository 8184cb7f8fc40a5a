package auth

import (
	"context"
	"strconv"

	"github.com/rxportal/portal/internal/platform/backend"
	"github.com/rxportal/portal/internal/platform/session"
)

// Backend is the slice of the analysis API this package consumes.
type Backend interface {
	Register(ctx context.Context, reg backend.Registration) error
	Login(ctx context.Context, email, password string) (*backend.Account, error)
}

type Service struct {
	backend  Backend
	sessions *session.Store
}

func NewService(b Backend, sessions *session.Store) *Service {
	return &Service{backend: b, sessions: sessions}
}

// Register validates the form and forwards it. When validation fails the
// field errors are returned and no backend call is made.
func (s *Service) Register(ctx context.Context, f RegistrationForm) (map[string]string, error) {
	if errs := ValidateRegistration(f); len(errs) > 0 {
		return errs, nil
	}
	age, _ := strconv.Atoi(f.Age)
	reg := backend.Registration{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Username:  f.Username,
		Email:     f.Email,
		Password:  f.Password,
		Age:       age,
		Gender:    f.Gender,
	}
	if err := s.backend.Register(ctx, reg); err != nil {
		return nil, err
	}
	return nil, nil
}

// SignIn exchanges credentials for a session. Registration leaves no session
// behind; only sign-in creates one.
func (s *Service) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	user, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.sessions.Create(user)
}

// SignOut destroys the session, clearing user and token together.
func (s *Service) SignOut(token string) {
	s.sessions.Destroy(token)
}
