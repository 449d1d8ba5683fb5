// Package roster keeps the server-wide list of online accounts and fans
// roster changes out to connected sessions.
package roster

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/worldgate/internal/model"
)

// Entry is one admitted session in the roster
type Entry struct {
	Uid        model.Uid
	ClientType model.ClientType
	Info       model.PlayerInfo
	Role       *model.AdminRole
}

// Snapshot is the roster as of the start of a tick. It is never mutated.
type Snapshot struct {
	// Players is what clients are shown; sessions that opt out of login
	// events are left out
	Players map[model.Uid]model.PlayerInfo
	// OldByUUID maps every account in the roster to its session
	OldByUUID map[uuid.UUID]model.Uid
	// Count is the number of roster entries, visible or not
	Count int
}

// Roster is the authoritative player list. Only the tick loop mutates it.
type Roster struct {
	mu      sync.RWMutex
	entries map[model.Uid]Entry
	byUUID  map[uuid.UUID]model.Uid
}

// New creates an empty Roster
func New() *Roster {
	return &Roster{
		entries: make(map[model.Uid]Entry),
		byUUID:  make(map[uuid.UUID]model.Uid),
	}
}

// Snapshot captures the current roster
func (r *Roster) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Players:   make(map[model.Uid]model.PlayerInfo, len(r.entries)),
		OldByUUID: maps.Clone(r.byUUID),
		Count:     len(r.entries),
	}
	for uid, e := range r.entries {
		if e.ClientType.EmitLoginEvents() {
			snap.Players[uid] = e.Info
		}
	}
	return snap
}

// Insert adds an entry. An account may hold only one entry at a time.
func (r *Roster) Insert(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[e.Uid]; ok {
		return model.ErrAlreadyInRoster
	}
	if _, ok := r.byUUID[e.Info.UUID]; ok {
		return model.ErrDuplicateAccount
	}
	r.entries[e.Uid] = e
	r.byUUID[e.Info.UUID] = e.Uid
	return nil
}

// Remove drops the entry for uid and returns it
func (r *Roster) Remove(uid model.Uid) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[uid]
	if !ok {
		return Entry{}, false
	}
	delete(r.entries, uid)
	if r.byUUID[e.Info.UUID] == uid {
		delete(r.byUUID, e.Info.UUID)
	}
	return e, true
}

// Get returns the entry for uid
func (r *Roster) Get(uid model.Uid) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[uid]
	return e, ok
}

// LookupAccount returns the session bound to an account
func (r *Roster) LookupAccount(id uuid.UUID) (model.Uid, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.byUUID[id]
	return uid, ok
}

// Entries returns every entry ordered by uid
func (r *Roster) Entries() []Entry {
	r.mu.RLock()
	out := slices.Collect(maps.Values(r.entries))
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.Uid, b.Uid) })
	return out
}

// Len returns the number of entries
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
