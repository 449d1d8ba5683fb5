package admission

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/session"
)

// admission is a session admitted during the current tick, waiting to be
// merged into the roster
type admission struct {
	client *session.Client
	player model.Player
	info   model.PlayerInfo
	role   *model.AdminRole
	add    *session.Prepared // nil if the session emits no login events
}

type verdictKind int

const (
	verdictAdmitted verdictKind = iota
	verdictFull
	verdictDuplicate
	verdictInvalid
)

type verdict struct {
	kind verdictKind
	// For verdictDuplicate, the session already bound to the account and its
	// client if it was admitted earlier in this tick
	previous       model.Uid
	previousClient *session.Client
}

// accumulator stages the accounts admitted in one tick. It is shared by all
// admission workers of the tick and guarded by a single mutex.
type accumulator struct {
	mu         sync.Mutex
	oldCount   int
	maxPlayers int
	byUUID     map[uuid.UUID]*admission
	order      []*admission
}

func newAccumulator(oldCount, maxPlayers int) *accumulator {
	return &accumulator{
		oldCount:   oldCount,
		maxPlayers: maxPlayers,
		byUUID:     make(map[uuid.UUID]*admission),
	}
}

// claim decides the fate of one authenticated session. old is the session
// bound to the same account when the tick began, if any. The capacity check
// and the lookup/insert happen under one lock so concurrent claims observe a
// consistent count and a single first writer per account.
func (a *accumulator) claim(adm *admission, old *model.Uid, valid, bypassCapacity bool) verdict {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !bypassCapacity && a.maxPlayers > 0 && a.oldCount+len(a.byUUID) >= a.maxPlayers {
		return verdict{kind: verdictFull}
	}
	if old != nil {
		return verdict{kind: verdictDuplicate, previous: *old}
	}
	if prev, ok := a.byUUID[adm.player.UUID]; ok {
		return verdict{kind: verdictDuplicate, previous: prev.client.Uid(), previousClient: prev.client}
	}
	if !valid {
		return verdict{kind: verdictInvalid}
	}
	a.byUUID[adm.player.UUID] = adm
	a.order = append(a.order, adm)
	return verdict{kind: verdictAdmitted}
}

// admitted returns the staged admissions in insertion order. Only call once
// every worker has finished.
func (a *accumulator) admitted() []*admission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.order
}
