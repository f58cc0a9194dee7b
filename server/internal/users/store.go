package users

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stockwatch/stockwatch/pkg/types"
)

var (
	// ErrValidation reports a missing or invalid request field.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports an unknown user id.
	ErrNotFound = errors.New("user not found")
)

const idPrefix = "user_"

// User is one registered viewer. Subscriptions hold no duplicates and keep
// the order in which tickers were added.
type User struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	Subscriptions []types.Ticker `json:"subscriptions"`
}

// Store is a thread-safe in-memory user directory.
type Store struct {
	mu        sync.RWMutex
	byEmail   map[string]*User
	byID      map[string]*User
	lastMilli int64
	enforce   bool
	now       func() time.Time // injectable for deterministic tests
}

// New creates an empty Store. When enforceTickers is true, Subscribe rejects
// tickers outside the supported set with ErrValidation.
func New(enforceTickers bool) *Store {
	return &Store{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
		enforce: enforceTickers,
		now:     time.Now,
	}
}

// Login returns the user registered under email, creating it on first use.
func (s *Store) Login(email string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, fmt.Errorf("login: email is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byEmail[email]; ok {
		return u.clone(), nil
	}

	u := &User{
		ID:            s.nextID(),
		Email:         email,
		Subscriptions: []types.Ticker{},
	}
	s.byEmail[email] = u
	s.byID[u.ID] = u
	return u.clone(), nil
}

// Subscribe adds ticker to the user's subscriptions. Subscribing twice is a
// no-op.
func (s *Store) Subscribe(userID, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return fmt.Errorf("subscribe %q: %w", userID, ErrNotFound)
	}
	t, err := s.ticker(ticker)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", userID, err)
	}
	for _, existing := range u.Subscriptions {
		if existing == t {
			return nil
		}
	}
	u.Subscriptions = append(u.Subscriptions, t)
	return nil
}

// Unsubscribe removes ticker from the user's subscriptions. Removing a ticker
// that is not subscribed is a no-op.
func (s *Store) Unsubscribe(userID, ticker string) error {
	t := types.Ticker(strings.ToUpper(strings.TrimSpace(ticker)))

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return fmt.Errorf("unsubscribe %q: %w", userID, ErrNotFound)
	}
	kept := u.Subscriptions[:0]
	for _, existing := range u.Subscriptions {
		if existing != t {
			kept = append(kept, existing)
		}
	}
	u.Subscriptions = kept
	return nil
}

// Get returns a copy of the user with the given id.
func (s *Store) Get(userID string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return User{}, false
	}
	return u.clone(), true
}

// Count returns the number of registered users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Snapshot returns every user as id -> {email, subscriptions}. The result
// shares no memory with the store.
func (s *Store) Snapshot() map[string]types.UserView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.UserView, len(s.byID))
	for id, u := range s.byID {
		out[id] = types.UserView{
			Email:         u.Email,
			Subscriptions: append([]types.Ticker{}, u.Subscriptions...),
		}
	}
	return out
}

// ticker normalises raw and, when enforcement is on, checks it is supported.
func (s *Store) ticker(raw string) (types.Ticker, error) {
	t, ok := types.ParseTicker(raw)
	if t == "" {
		return "", fmt.Errorf("ticker is required: %w", ErrValidation)
	}
	if s.enforce && !ok {
		return "", fmt.Errorf("ticker %q is not supported: %w", t, ErrValidation)
	}
	return t, nil
}

// nextID derives an id from the current time in milliseconds, bumping past
// the last issued value so two logins in the same millisecond never collide.
// Callers must hold s.mu.
func (s *Store) nextID() string {
	ms := s.now().UnixMilli()
	if ms <= s.lastMilli {
		ms = s.lastMilli + 1
	}
	s.lastMilli = ms
	return idPrefix + strconv.FormatInt(ms, 10)
}

func (u *User) clone() User {
	return User{
		ID:            u.ID,
		Email:         u.Email,
		Subscriptions: append([]types.Ticker{}, u.Subscriptions...),
	}
}
