package state

import (
	"context"
	"sync"

	"carservice-app/internal/models"
	"carservice-app/internal/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthState is the auth feature's state container: one phase per async
// action plus the continuously resolved current user.
type AuthState struct {
	auth *services.AuthService

	mu          sync.Mutex
	phase       Phase
	user        *models.User
	token       string
	errMsg      string
	currentUser *models.User
	cancelWatch context.CancelFunc
	watchGen    uint64

	changed signal
}

type AuthSnapshot struct {
	Phase       Phase
	User        *models.User
	Token       string
	Err         string
	CurrentUser *models.User
}

func NewAuthState(auth *services.AuthService) *AuthState {
	return &AuthState{auth: auth, phase: PhaseIdle}
}

func (s *AuthState) SignIn(ctx context.Context, email, password string) {
	s.setLoading()
	user, token, err := s.auth.SignIn(ctx, email, password)
	s.finish(user, token, err)
}

func (s *AuthState) Register(ctx context.Context, email, password, name, phone string, role models.UserRole) {
	s.setLoading()
	user, token, err := s.auth.Register(ctx, email, password, name, phone, role)
	s.finish(user, token, err)
}

func (s *AuthState) UpdateProfile(ctx context.Context, user *models.User) {
	s.setLoading()
	updated, err := s.auth.UpdateProfile(ctx, user)
	s.finish(updated, s.snapshotToken(), err)
}

func (s *AuthState) SignOut(ctx context.Context) {
	token := s.snapshotToken()
	if token != "" {
		_ = s.auth.SignOut(ctx, token)
	}

	s.mu.Lock()
	s.phase = PhaseIdle
	s.user = nil
	s.token = ""
	s.errMsg = ""
	s.currentUser = nil
	if s.cancelWatch != nil {
		s.cancelWatch()
		s.cancelWatch = nil
	}
	s.watchGen++
	s.mu.Unlock()
	s.changed.Notify()
}

// StartUserStream keeps the current-user value resolved from the store.
// Starting a new stream cancels the previous one; the consumer always
// replaces, never merges.
func (s *AuthState) StartUserStream(ctx context.Context, userID primitive.ObjectID) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	s.cancelWatch = cancel
	s.watchGen++
	gen := s.watchGen
	s.mu.Unlock()

	go s.consumeUser(gen, s.auth.CurrentUserStream(ctx, userID))
}

// consumeUser drops deliveries once the subscription has been replaced:
// the stream channel is buffered, so a stale user can still arrive after
// cancellation.
func (s *AuthState) consumeUser(gen uint64, stream <-chan *models.User) {
	for user := range stream {
		s.mu.Lock()
		if s.watchGen != gen {
			s.mu.Unlock()
			return
		}
		s.currentUser = user
		s.mu.Unlock()
		s.changed.Notify()
	}
}

func (s *AuthState) Snapshot() AuthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AuthSnapshot{
		Phase:       s.phase,
		User:        s.user,
		Token:       s.token,
		Err:         s.errMsg,
		CurrentUser: s.currentUser,
	}
}

func (s *AuthState) Updates() <-chan struct{} {
	return s.changed.Subscribe()
}

func (s *AuthState) Close() {
	s.mu.Lock()
	if s.cancelWatch != nil {
		s.cancelWatch()
		s.cancelWatch = nil
	}
	s.watchGen++
	s.mu.Unlock()
}

func (s *AuthState) setLoading() {
	s.mu.Lock()
	s.phase = PhaseLoading
	s.errMsg = ""
	s.mu.Unlock()
	s.changed.Notify()
}

func (s *AuthState) finish(user *models.User, token string, err error) {
	s.mu.Lock()
	if err != nil {
		s.phase = PhaseError
		s.errMsg = err.Error()
	} else {
		s.phase = PhaseSuccess
		s.user = user
		s.token = token
	}
	s.mu.Unlock()
	s.changed.Notify()
}

func (s *AuthState) snapshotToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
