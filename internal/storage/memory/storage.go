package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	clock clock.Clock

	accounts      map[uuid.UUID]*model.Account
	usernameIndex map[string]uuid.UUID
	tokens        map[string]tokenEntry
}

type tokenEntry struct {
	accountID uuid.UUID
	expiresAt time.Time // zero means no expiry
}

// New creates a new in-memory storage instance.
// If clk is nil, the system clock is used for token expiry.
func New(clk clock.Clock) *Storage {
	if clk == nil {
		clk = clock.New()
	}
	return &Storage{
		clock:         clk,
		accounts:      make(map[uuid.UUID]*model.Account),
		usernameIndex: make(map[string]uuid.UUID),
		tokens:        make(map[string]tokenEntry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *account
	s.accounts[account.UUID] = &stored
	s.usernameIndex[account.Username] = account.UUID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

// Token operations

func (s *Storage) SaveToken(ctx context.Context, token string, accountID uuid.UUID, ttl time.Duration) error {
	entry := tokenEntry{accountID: accountID}
	if ttl > 0 {
		entry.expiresAt = s.clock.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = entry
	return nil
}

func (s *Storage) ResolveToken(ctx context.Context, token string) (uuid.UUID, error) {
	now := s.clock.Now()

	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok {
		return uuid.Nil, model.ErrTokenNotFound
	}
	if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return uuid.Nil, model.ErrTokenNotFound
	}
	return entry.accountID, nil
}

func (s *Storage) DeleteToken(ctx context.Context, token string) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return model.ErrTokenNotFound
	}
	delete(s.tokens, token)
	if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
		return model.ErrTokenNotFound
	}
	return nil
}
