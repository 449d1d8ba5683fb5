package model

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole is the administrative role held by an account
type AdminRole string

const (
	RoleModerator AdminRole = "moderator"
	RoleAdmin     AdminRole = "admin"
)

// Rank orders roles so that a higher value outranks a lower one
func (r AdminRole) Rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

// BattleMode is the PvP/PvE preference of a player
type BattleMode string

const (
	BattleModePvP BattleMode = "pvp"
	BattleModePvE BattleMode = "pve"
)

// Identity is the authenticated principal behind a session
type Identity struct {
	UUID     uuid.UUID
	Username string
}

// Account is a registered account with authentication data
type Account struct {
	UUID         uuid.UUID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the identity this account authenticates as
func (a *Account) Identity() Identity {
	return Identity{UUID: a.UUID, Username: a.Username}
}
