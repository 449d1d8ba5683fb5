package admission

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/auth"
)

// Tracker holds at most one pending login per session
type Tracker struct {
	mu      sync.Mutex
	pending map[model.Uid]*auth.PendingLogin
}

// NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[model.Uid]*auth.PendingLogin)}
}

// Get returns the pending login for uid
func (t *Tracker) Get(uid model.Uid) (*auth.PendingLogin, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[uid]
	return p, ok
}

// Has reports whether uid has a pending login
func (t *Tracker) Has(uid model.Uid) bool {
	_, ok := t.Get(uid)
	return ok
}

// Insert sets the pending login for uid, replacing any existing one
func (t *Tracker) Insert(uid model.Uid, p *auth.PendingLogin) {
	t.mu.Lock()
	t.pending[uid] = p
	t.mu.Unlock()
}

// Remove drops the pending login for uid
func (t *Tracker) Remove(uid model.Uid) {
	t.mu.Lock()
	delete(t.pending, uid)
	t.mu.Unlock()
}

// Uids returns every uid with a pending login, ascending
func (t *Tracker) Uids() []model.Uid {
	t.mu.Lock()
	uids := slices.Collect(maps.Keys(t.pending))
	t.mu.Unlock()
	slices.SortFunc(uids, cmp.Compare[model.Uid])
	return uids
}

// Len returns the number of pending logins
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
