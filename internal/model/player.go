package model

import "github.com/google/uuid"

// MaxAliasLength is the longest alias a player may use, in bytes
const MaxAliasLength = 32

// Uid is the short per-session identifier, unique among connected sessions
type Uid uint64

// Player is the in-world component bound to an admitted session
type Player struct {
	Alias      string
	UUID       uuid.UUID
	BattleMode BattleMode
}

// NewPlayer creates the player component for a freshly authenticated identity
func NewPlayer(identity Identity, battleMode BattleMode) Player {
	return Player{
		Alias:      identity.Username,
		UUID:       identity.UUID,
		BattleMode: battleMode,
	}
}

// IsValid reports whether the player may be shown in the roster
func (p Player) IsValid() bool {
	return AliasIsValid(p.Alias)
}

// AliasIsValid checks an alias is non-empty, short enough and uses only
// ASCII letters, digits, '_' or '-'
func AliasIsValid(alias string) bool {
	if alias == "" || len(alias) > MaxAliasLength {
		return false
	}
	for i := 0; i < len(alias); i++ {
		c := alias[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// CharacterInfo summarizes the selected character of a roster entry
type CharacterInfo struct {
	Name       string     `json:"name"`
	Gender     string     `json:"gender,omitempty"`
	BattleMode BattleMode `json:"battle_mode"`
}

// PlayerInfo is the externally visible roster entry for one account
type PlayerInfo struct {
	PlayerAlias string         `json:"player_alias"`
	IsOnline    bool           `json:"is_online"`
	IsModerator bool           `json:"is_moderator"`
	Character   *CharacterInfo `json:"character,omitempty"` // nil until a character is selected
	UUID        uuid.UUID      `json:"uuid"`
}
