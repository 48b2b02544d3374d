// Package identity models the authenticated-user handle the sync engine is
// gated on. Identity is an explicit dependency passed into every consumer
// rather than module-level state; providers push changes to subscribers.
package identity

import (
	"context"
	"sync"
)

// User is the opaque authenticated-user handle.
type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Provider supplies the current identity and a change-notification stream.
// CurrentUser returns nil when nobody is signed in; consumers treat that as
// "sync disabled".
type Provider interface {
	CurrentUser() *User
	Login(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
	// Subscribe registers a callback invoked on every identity change
	// (sign-in and sign-out). The returned function cancels the
	// subscription.
	Subscribe(fn func(*User)) (cancel func())
}

// Static is a Provider with a fixed identity, toggled by Login/Logout.
// It serves tests and token-from-config deployments where no interactive
// sign-in exists.
type Static struct {
	mu     sync.Mutex
	user   User
	signed bool

	subsMu sync.Mutex
	subs   map[int]func(*User)
	nextID int
}

// NewStatic creates a provider that will report the given user once Login
// is called. If signedIn is true the user starts signed in.
func NewStatic(user User, signedIn bool) *Static {
	return &Static{user: user, signed: signedIn, subs: make(map[int]func(*User))}
}

// CurrentUser implements Provider.
func (s *Static) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signed {
		return nil
	}
	u := s.user
	return &u
}

// Login implements Provider.
func (s *Static) Login(_ context.Context) (*User, error) {
	s.mu.Lock()
	s.signed = true
	u := s.user
	s.mu.Unlock()
	s.notify(&u)
	return &u, nil
}

// Logout implements Provider.
func (s *Static) Logout(_ context.Context) error {
	s.mu.Lock()
	s.signed = false
	s.mu.Unlock()
	s.notify(nil)
	return nil
}

// Subscribe implements Provider.
func (s *Static) Subscribe(fn func(*User)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Static) notify(u *User) {
	s.subsMu.Lock()
	fns := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}
