package session

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rxportal/portal/internal/platform/backend"
)

// Session pairs a signed-in user record with its opaque token. Both must be
// present for the session to count as authenticated; they are created and
// destroyed together.
type Session struct {
	ID      string
	Token   string
	User    *backend.Account
	Created time.Time
}

// Store holds live sessions in memory, keyed by token. Sessions do not
// expire; they end on logout or process restart.
type Store struct {
	mu        sync.RWMutex
	secret    []byte
	sessions  map[string]*Session
	onDestroy []func(token string)
}

func NewStore(secret string) *Store {
	return &Store{secret: []byte(secret), sessions: make(map[string]*Session)}
}

// Create mints a token for the user and registers the session.
func (s *Store) Create(user *backend.Account) (*Session, error) {
	if user == nil {
		return nil, fmt.Errorf("user record is required")
	}
	id := uuid.NewString()
	token, err := s.mintToken(id, user.ID)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}
	sess := &Session{ID: id, Token: token, User: user, Created: time.Now()}
	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get looks up a session by token. Presence of the token and its user record
// is the whole authentication check.
func (s *Store) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || sess.User == nil {
		return nil, false
	}
	return sess, true
}

// OnDestroy registers a callback fired whenever a session is destroyed.
// Handlers use it to drop the per-session controller state they key by token.
func (s *Store) OnDestroy(fn func(token string)) {
	s.mu.Lock()
	s.onDestroy = append(s.onDestroy, fn)
	s.mu.Unlock()
}

// Destroy removes the session, clearing user and token together, and
// notifies the registered listeners.
func (s *Store) Destroy(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	fns := s.onDestroy
	s.mu.Unlock()
	for _, fn := range fns {
		fn(token)
	}
}

// mintToken signs a JWT over the session id. The gate only checks presence,
// but a signed value keeps the token opaque and upgrade-ready.
func (s *Store) mintToken(sessionID string, userID int) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"sub": strconv.Itoa(userID),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
