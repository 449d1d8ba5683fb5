package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/worldgate/internal/model"
)

// Storage defines the interface for account persistence
type Storage interface {
	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// Auth token operations. Tokens stop resolving once ttl has elapsed.
	SaveToken(ctx context.Context, token string, accountID uuid.UUID, ttl time.Duration) error
	ResolveToken(ctx context.Context, token string) (uuid.UUID, error)
	DeleteToken(ctx context.Context, token string) error
}
