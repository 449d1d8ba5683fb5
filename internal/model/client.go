package model

// ClientKind identifies what a connecting client intends to do
type ClientKind string

const (
	// KindGame is a regular client that plays the game
	KindGame ClientKind = "game"
	// KindChatOnly only wants chat, never enters a character
	KindChatOnly ClientKind = "chat_only"
	// KindSilentSpectator may only spectate, emits no login/logout events and
	// cannot chat. Requires an admin role.
	KindSilentSpectator ClientKind = "silent_spectator"
	// KindBot is an unprivileged bot, or a privileged bot running admin commands
	KindBot ClientKind = "bot"
)

// ClientType is declared once per connection and fixed for its lifetime
type ClientType struct {
	Kind       ClientKind `json:"kind"`
	Privileged bool       `json:"privileged,omitempty"` // only meaningful for bots
}

// Known reports whether the kind is one the server understands
func (t ClientType) Known() bool {
	switch t.Kind {
	case KindGame, KindChatOnly, KindSilentSpectator, KindBot:
		return true
	default:
		return false
	}
}

// IsValidForRole reports whether an account holding role (nil for none) may
// connect as this client type
func (t ClientType) IsValidForRole(role *AdminRole) bool {
	switch t.Kind {
	case KindSilentSpectator:
		return role != nil
	case KindBot:
		return !t.Privileged || role != nil
	default:
		return true
	}
}

// EmitLoginEvents reports whether sessions of this type appear in roster broadcasts
func (t ClientType) EmitLoginEvents() bool {
	return t.Kind != KindSilentSpectator
}

// CanSpectate reports whether the type may enter spectator mode
func (t ClientType) CanSpectate() bool {
	return t.Kind == KindGame || t.Kind == KindSilentSpectator
}

// CanEnterCharacter reports whether the type may play a character
func (t ClientType) CanEnterCharacter() bool {
	return t.Kind == KindGame
}

// CanSendMessage reports whether the type may send chat
func (t ClientType) CanSendMessage() bool {
	return t.Kind != KindSilentSpectator
}

// PresenceKind describes how a registered session is present in the world
type PresenceKind string

const (
	PresenceCharacter PresenceKind = "character"
	PresenceSpectator PresenceKind = "spectator"
)

// ClientMsg is the closed set of messages a client may send
type ClientMsg interface {
	clientMsg()
}

// TypeMsg is sent once, first, to declare the client type
type TypeMsg struct {
	ClientType ClientType `json:"client_type"`
}

// RegisterMsg is sent once to authenticate
type RegisterMsg struct {
	TokenOrUsername string  `json:"token_or_username"`
	Locale          *string `json:"locale,omitempty"`
}

// GeneralMsg is any message allowed once registered
type GeneralMsg struct {
	Kind GeneralKind `json:"kind"`
	Body string      `json:"body,omitempty"`
}

// PingMsg is always allowed
type PingMsg struct{}

func (TypeMsg) clientMsg()     {}
func (RegisterMsg) clientMsg() {}
func (GeneralMsg) clientMsg()  {}
func (PingMsg) clientMsg()     {}

// GeneralKind names a general client message
type GeneralKind string

const (
	// Character screen only
	GeneralRequestCharacterList GeneralKind = "request_character_list"
	GeneralCreateCharacter      GeneralKind = "create_character"
	GeneralEditCharacter        GeneralKind = "edit_character"
	GeneralDeleteCharacter      GeneralKind = "delete_character"
	GeneralCharacter            GeneralKind = "character"
	GeneralSpectate             GeneralKind = "spectate"

	// In game only
	GeneralControllerInputs GeneralKind = "controller_inputs"
	GeneralControlEvent     GeneralKind = "control_event"
	GeneralControlAction    GeneralKind = "control_action"
	GeneralSetViewDistance  GeneralKind = "set_view_distance"
	GeneralBreakBlock       GeneralKind = "break_block"
	GeneralPlaceBlock       GeneralKind = "place_block"
	GeneralExitInGame       GeneralKind = "exit_in_game"
	GeneralPlayerPhysics    GeneralKind = "player_physics"
	GeneralTerrainChunk     GeneralKind = "terrain_chunk_request"
	GeneralUnlockSkill      GeneralKind = "unlock_skill"
	GeneralRequestSiteInfo  GeneralKind = "request_site_info"
	GeneralUpdateMapMarker  GeneralKind = "update_map_marker"
	GeneralSetBattleMode    GeneralKind = "set_battle_mode"
	GeneralSpectatePosition GeneralKind = "spectate_position"

	// Always possible once registered (chat still depends on client type)
	GeneralChatMsg       GeneralKind = "chat_msg"
	GeneralCommand       GeneralKind = "command"
	GeneralTerminate     GeneralKind = "terminate"
	GeneralLodZone       GeneralKind = "lod_zone_request"
	GeneralRequestPlugin GeneralKind = "request_plugins"
)

// Verify is the message-level eligibility gate. declared is the type the
// connection declared, registered reports whether an identity is bound and
// presence is nil while on the character screen. A type declaration is only
// accepted by the connection handshake, so it never passes here.
func Verify(msg ClientMsg, declared ClientType, registered bool, presence *PresenceKind) bool {
	switch m := msg.(type) {
	case TypeMsg:
		return false
	case RegisterMsg:
		return !registered && presence == nil
	case GeneralMsg:
		return registered && verifyGeneral(m.Kind, declared, presence)
	case PingMsg:
		return true
	default:
		return false
	}
}

func verifyGeneral(kind GeneralKind, declared ClientType, presence *PresenceKind) bool {
	switch kind {
	case GeneralRequestCharacterList, GeneralCreateCharacter, GeneralEditCharacter, GeneralDeleteCharacter:
		return declared.Kind != KindChatOnly && presence == nil
	case GeneralCharacter:
		return declared.Kind == KindGame && presence == nil
	case GeneralSpectate:
		return declared.CanSpectate() && presence == nil
	case GeneralControllerInputs, GeneralControlEvent, GeneralControlAction, GeneralSetViewDistance,
		GeneralBreakBlock, GeneralPlaceBlock, GeneralExitInGame, GeneralPlayerPhysics,
		GeneralTerrainChunk, GeneralUnlockSkill, GeneralRequestSiteInfo, GeneralUpdateMapMarker,
		GeneralSetBattleMode:
		return declared.Kind == KindGame && presence != nil
	case GeneralSpectatePosition:
		return declared.CanSpectate() && presence != nil
	case GeneralChatMsg:
		return declared.CanSendMessage()
	case GeneralCommand, GeneralTerminate, GeneralLodZone, GeneralRequestPlugin:
		return true
	default:
		return false
	}
}
