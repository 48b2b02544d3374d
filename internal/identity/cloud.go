package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/david8015838-create/nexus-mind/internal/remote"
)

// CloudProvider authenticates against the cloud server with email/password
// credentials and installs the returned bearer token on the shared remote
// client, so subsequent sync calls run as the signed-in account.
type CloudProvider struct {
	client   *remote.HTTP
	email    string
	password string

	mu   sync.Mutex
	user *User

	subsMu sync.Mutex
	subs   map[int]func(*User)
	nextID int
}

// NewCloudProvider creates a provider for the given remote client and
// credentials. Nobody is signed in until Login succeeds.
func NewCloudProvider(client *remote.HTTP, email, password string) *CloudProvider {
	return &CloudProvider{
		client:   client,
		email:    email,
		password: password,
		subs:     make(map[int]func(*User)),
	}
}

// CurrentUser implements Provider.
func (p *CloudProvider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// Login implements Provider. It exchanges the configured credentials for a
// token and publishes the new identity to subscribers.
func (p *CloudProvider) Login(ctx context.Context) (*User, error) {
	token, uid, displayName, err := p.client.Login(ctx, p.email, p.password)
	if err != nil {
		return nil, fmt.Errorf("identity: login: %w", err)
	}
	p.client.SetToken(token)

	u := &User{UID: uid, Email: p.email, DisplayName: displayName}
	p.mu.Lock()
	p.user = u
	p.mu.Unlock()

	p.notify(u)
	out := *u
	return &out, nil
}

// Logout implements Provider. It discards the token and identity locally;
// the server keeps no session state beyond token expiry.
func (p *CloudProvider) Logout(_ context.Context) error {
	p.client.SetToken("")
	p.mu.Lock()
	p.user = nil
	p.mu.Unlock()
	p.notify(nil)
	return nil
}

// Subscribe implements Provider.
func (p *CloudProvider) Subscribe(fn func(*User)) (cancel func()) {
	p.subsMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subsMu.Unlock()
	return func() {
		p.subsMu.Lock()
		delete(p.subs, id)
		p.subsMu.Unlock()
	}
}

func (p *CloudProvider) notify(u *User) {
	p.subsMu.Lock()
	fns := make([]func(*User), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subsMu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}
