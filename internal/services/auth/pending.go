package auth

import (
	"context"
	"sync"

	"github.com/mcoot/worldgate/internal/model"
)

// LoginState is the resolution state of a PendingLogin
type LoginState int

const (
	LoginUnresolved LoginState = iota
	LoginFailed
	LoginSucceeded
)

func (s LoginState) String() string {
	switch s {
	case LoginUnresolved:
		return "unresolved"
	case LoginFailed:
		return "failed"
	case LoginSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// PendingLogin is an in-flight or resolved authentication attempt.
// It resolves exactly once; Poll never blocks.
type PendingLogin struct {
	done     chan struct{}
	once     sync.Once
	identity model.Identity
	err      error
}

func newPendingLogin() *PendingLogin {
	return &PendingLogin{done: make(chan struct{})}
}

// NewDeferredLogin creates an unresolved login and the function that
// resolves it. Only the first call to resolve has any effect.
func NewDeferredLogin() (*PendingLogin, func(model.Identity, error)) {
	p := newPendingLogin()
	return p, p.resolve
}

// NewResolvedLogin creates an already-succeeded login. Used to requeue a
// session whose credentials were checked but whose admission was deferred.
func NewResolvedLogin(identity model.Identity) *PendingLogin {
	p := newPendingLogin()
	p.resolve(identity, nil)
	return p
}

// NewFailedLogin creates an already-failed login
func NewFailedLogin(err error) *PendingLogin {
	p := newPendingLogin()
	p.resolve(model.Identity{}, err)
	return p
}

func (p *PendingLogin) resolve(identity model.Identity, err error) {
	p.once.Do(func() {
		p.identity = identity
		p.err = err
		close(p.done)
	})
}

// Poll reports the current state without blocking
func (p *PendingLogin) Poll() (LoginState, model.Identity, error) {
	select {
	case <-p.done:
		if p.err != nil {
			return LoginFailed, model.Identity{}, p.err
		}
		return LoginSucceeded, p.identity, nil
	default:
		return LoginUnresolved, model.Identity{}, nil
	}
}

// Wait blocks until the login resolves or ctx is done
func (p *PendingLogin) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
