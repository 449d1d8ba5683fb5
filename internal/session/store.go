package session

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/worldgate/internal/model"
)

// Store tracks connected clients by uid
type Store struct {
	mu      sync.RWMutex
	clients map[model.Uid]*Client
	nextUid model.Uid
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		clients: make(map[model.Uid]*Client),
		nextUid: 1,
	}
}

// Create registers a new client under a fresh uid
func (s *Store) Create(transport Transport, clientType model.ClientType, ip string, connectedAt time.Time) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := s.nextUid
	s.nextUid++
	c := newClient(uid, clientType, ip, connectedAt, transport)
	s.clients[uid] = c
	return c
}

// Get returns the client with uid
func (s *Store) Get(uid model.Uid) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[uid]
	return c, ok
}

// Remove drops the client with uid and returns it
func (s *Store) Remove(uid model.Uid) (*Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[uid]
	if ok {
		delete(s.clients, uid)
	}
	return c, ok
}

// All returns every client ordered by uid
func (s *Store) All() []*Client {
	s.mu.RLock()
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Client) int { return cmp.Compare(a.uid, b.uid) })
	return out
}

// Len returns the number of connected clients
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
