package response

import (
	"time"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/services/roster"
)

// Account represents an account in API responses
type Account struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		UUID:      a.UUID.String(),
		Username:  a.Username,
		CreatedAt: a.CreatedAt,
	}
}

// Token is the response for the token endpoint
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RosterEntry represents one admitted session
type RosterEntry struct {
	Uid         uint64 `json:"uid"`
	ClientType  string `json:"client_type"`
	Alias       string `json:"alias"`
	UUID        string `json:"uuid"`
	IsModerator bool   `json:"is_moderator"`
	Role        string `json:"role,omitempty"`
}

// RosterEntryFromModel converts a roster.Entry
func RosterEntryFromModel(e roster.Entry) RosterEntry {
	entry := RosterEntry{
		Uid:         uint64(e.Uid),
		ClientType:  string(e.ClientType.Kind),
		Alias:       e.Info.PlayerAlias,
		UUID:        e.Info.UUID.String(),
		IsModerator: e.Info.IsModerator,
	}
	if e.Role != nil {
		entry.Role = string(*e.Role)
	}
	return entry
}

// Roster is the response for the roster endpoint
type Roster struct {
	Players  []RosterEntry `json:"players"`
	Sessions int           `json:"sessions"`
}
