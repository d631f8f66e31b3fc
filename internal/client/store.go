package client

import (
	"context"
	"sync"

	"github.com/rehearsal-scheduler/app/internal/logging"
	"github.com/rehearsal-scheduler/app/internal/models"
)

// Slice is one section of the store. Every async operation moves it through
// pending (IsLoading, Error cleared), then fulfilled (Data replaced) or
// rejected (Error set).
type Slice[T any] struct {
	Data      T
	IsLoading bool
	Error     string
}

func (s *Slice[T]) pending() {
	s.IsLoading = true
	s.Error = ""
}

func (s *Slice[T]) fulfilled(data T) {
	s.IsLoading = false
	s.Data = data
}

func (s *Slice[T]) rejected(msg string) {
	s.IsLoading = false
	s.Error = msg
}

// AuthState is the session slice. User carries the bearer token.
type AuthState struct {
	User            *models.AuthResponse
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

const (
	NotificationError   = "error"
	NotificationSuccess = "success"
)

type Notification struct {
	ID      int
	Kind    string
	Message string
}

type UIState struct {
	Notifications []Notification
}

// State is a snapshot of the whole store.
type State struct {
	Auth       AuthState
	Bands      Slice[[]*models.Band]
	Rehearsals Slice[[]*models.Rehearsal]
	Setlists   Slice[[]*models.Setlist]
	UI         UIState
}

// Store holds client state and runs API operations against it. Listeners are
// called after each change, outside the lock, with a snapshot.
type Store struct {
	api     *Client
	session SessionStore

	mu               sync.Mutex
	state            State
	listeners        map[int]func(State)
	nextListener     int
	nextNotification int
}

// NewStore restores a persisted session, if any. A session that cannot be
// read is cleared rather than treated as fatal.
func NewStore(api *Client, session SessionStore) *Store {
	s := &Store{
		api:       api,
		session:   session,
		listeners: make(map[int]func(State)),
	}
	if stored, err := session.Load(); err == nil && stored != nil {
		s.state.Auth.User = stored
		s.state.Auth.IsAuthenticated = true
	} else if err != nil {
		_ = session.Clear()
	}
	return s
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe registers fn to run after every change and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshot()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// snapshot copies the slice headers callers could append to. Must hold mu.
func (s *Store) snapshot() State {
	snap := s.state
	snap.UI.Notifications = append([]Notification(nil), s.state.UI.Notifications...)
	snap.Bands.Data = append([]*models.Band(nil), s.state.Bands.Data...)
	snap.Rehearsals.Data = append([]*models.Rehearsal(nil), s.state.Rehearsals.Data...)
	snap.Setlists.Data = append([]*models.Setlist(nil), s.state.Setlists.Data...)
	return snap
}

func (s *Store) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Auth.User == nil {
		return ""
	}
	return s.state.Auth.User.Token
}

// notify appends a notification. Must be called inside update.
func (s *Store) notify(state *State, kind, msg string) {
	s.nextNotification++
	state.UI.Notifications = append(state.UI.Notifications, Notification{
		ID:      s.nextNotification,
		Kind:    kind,
		Message: msg,
	})
}

// reject records msg on a failed operation and surfaces it as a notification.
func (s *Store) reject(ctx context.Context, op string, err error, msg string, apply func(*State)) error {
	logging.FromContext(ctx).WithError(err).WithField("operation", op).Debug("store operation rejected")
	s.update(func(state *State) {
		apply(state)
		s.notify(state, NotificationError, msg)
	})
	return err
}

// Login authenticates and persists the session.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.update(func(state *State) {
		state.Auth.IsLoading = true
		state.Auth.Error = ""
	})

	user, err := s.api.Login(ctx, email, password)
	if err == nil {
		err = s.session.Save(user)
	}
	if err != nil {
		msg := errorMessage(err, "Failed to login")
		return s.reject(ctx, "login", err, msg, func(state *State) {
			state.Auth.IsLoading = false
			state.Auth.Error = msg
		})
	}

	s.update(func(state *State) {
		state.Auth.IsLoading = false
		state.Auth.IsAuthenticated = true
		state.Auth.User = user
	})
	return nil
}

// Register creates an account, then behaves like Login.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	s.update(func(state *State) {
		state.Auth.IsLoading = true
		state.Auth.Error = ""
	})

	user, err := s.api.Register(ctx, name, email, password)
	if err == nil {
		err = s.session.Save(user)
	}
	if err != nil {
		msg := errorMessage(err, "Failed to register")
		return s.reject(ctx, "register", err, msg, func(state *State) {
			state.Auth.IsLoading = false
			state.Auth.Error = msg
		})
	}

	s.update(func(state *State) {
		state.Auth.IsLoading = false
		state.Auth.IsAuthenticated = true
		state.Auth.User = user
	})
	return nil
}

// Logout clears the persisted session and all user data. The server call is
// informational; local logout happens even if it fails.
func (s *Store) Logout(ctx context.Context) error {
	if token := s.token(); token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			logging.FromContext(ctx).WithError(err).Debug("server logout failed")
		}
	}
	err := s.session.Clear()

	s.update(func(state *State) {
		*state = State{UI: state.UI}
	})
	return err
}

// ResetAuthError clears the auth slice error.
func (s *Store) ResetAuthError() {
	s.update(func(state *State) {
		state.Auth.Error = ""
	})
}

// FetchProfile refreshes the user fields of the session, keeping the token.
func (s *Store) FetchProfile(ctx context.Context) error {
	s.update(func(state *State) {
		state.Auth.IsLoading = true
	})

	profile, err := s.api.Me(ctx, s.token())
	if err != nil {
		msg := errorMessage(err, "Failed to get user profile")
		return s.reject(ctx, "profile", err, msg, func(state *State) {
			state.Auth.IsLoading = false
			state.Auth.Error = msg
		})
	}

	var session *models.AuthResponse
	s.update(func(state *State) {
		state.Auth.IsLoading = false
		merged := models.AuthResponse{ID: profile.ID, Name: profile.Name, Email: profile.Email}
		if state.Auth.User != nil {
			merged.Token = state.Auth.User.Token
		}
		state.Auth.User = &merged
		session = &merged
	})
	return s.session.Save(session)
}

func (s *Store) FetchBands(ctx context.Context) error {
	s.update(func(state *State) { state.Bands.pending() })

	bands, err := s.api.Bands(ctx, s.token())
	if err != nil {
		msg := errorMessage(err, "Failed to fetch bands")
		return s.reject(ctx, "bands", err, msg, func(state *State) { state.Bands.rejected(msg) })
	}
	s.update(func(state *State) { state.Bands.fulfilled(bands) })
	return nil
}

// FetchUpcomingRehearsals loads the dashboard list. limit <= 0 uses the server default.
func (s *Store) FetchUpcomingRehearsals(ctx context.Context, limit int) error {
	s.update(func(state *State) { state.Rehearsals.pending() })

	rehearsals, err := s.api.UpcomingRehearsals(ctx, s.token(), limit)
	if err != nil {
		msg := errorMessage(err, "Failed to fetch upcoming rehearsals")
		return s.reject(ctx, "upcoming", err, msg, func(state *State) { state.Rehearsals.rejected(msg) })
	}
	s.update(func(state *State) { state.Rehearsals.fulfilled(rehearsals) })
	return nil
}

// RespondToRehearsal sets the caller's attendance and replaces the matching
// rehearsal in the rehearsals slice with the server's copy.
func (s *Store) RespondToRehearsal(ctx context.Context, rehearsalID int64, status, note string) error {
	s.update(func(state *State) { state.Rehearsals.pending() })

	updated, err := s.api.SetAttendance(ctx, s.token(), rehearsalID, status, note)
	if err != nil {
		msg := errorMessage(err, "Failed to update attendance")
		return s.reject(ctx, "attendance", err, msg, func(state *State) { state.Rehearsals.rejected(msg) })
	}

	s.update(func(state *State) {
		rehearsals := make([]*models.Rehearsal, len(state.Rehearsals.Data))
		for i, r := range state.Rehearsals.Data {
			if r.ID == updated.ID {
				r = updated
			}
			rehearsals[i] = r
		}
		state.Rehearsals.fulfilled(rehearsals)
		s.notify(state, NotificationSuccess, "Response saved")
	})
	return nil
}

// FetchSetlists loads setlists, for one band when bandID is non-zero.
func (s *Store) FetchSetlists(ctx context.Context, bandID int64) error {
	s.update(func(state *State) { state.Setlists.pending() })

	setlists, err := s.api.Setlists(ctx, s.token(), bandID)
	if err != nil {
		msg := errorMessage(err, "Failed to fetch setlists")
		return s.reject(ctx, "setlists", err, msg, func(state *State) { state.Setlists.rejected(msg) })
	}
	s.update(func(state *State) { state.Setlists.fulfilled(setlists) })
	return nil
}

// DismissNotification removes the notification with id, if present.
func (s *Store) DismissNotification(id int) {
	s.update(func(state *State) {
		kept := state.UI.Notifications[:0]
		for _, n := range state.UI.Notifications {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		state.UI.Notifications = kept
	})
}
