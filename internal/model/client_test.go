package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientTypeRoleGate(t *testing.T) {
	admin := RoleAdmin

	tests := []struct {
		name  string
		typ   ClientType
		role  *AdminRole
		valid bool
	}{
		{"game without role", ClientType{Kind: KindGame}, nil, true},
		{"chat only without role", ClientType{Kind: KindChatOnly}, nil, true},
		{"silent spectator without role", ClientType{Kind: KindSilentSpectator}, nil, false},
		{"silent spectator with role", ClientType{Kind: KindSilentSpectator}, &admin, true},
		{"bot without role", ClientType{Kind: KindBot}, nil, true},
		{"privileged bot without role", ClientType{Kind: KindBot, Privileged: true}, nil, false},
		{"privileged bot with role", ClientType{Kind: KindBot, Privileged: true}, &admin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.typ.IsValidForRole(tt.role))
		})
	}
}

func TestClientTypeCapabilities(t *testing.T) {
	game := ClientType{Kind: KindGame}
	chat := ClientType{Kind: KindChatOnly}
	silent := ClientType{Kind: KindSilentSpectator}

	assert.True(t, game.EmitLoginEvents())
	assert.False(t, silent.EmitLoginEvents())
	assert.True(t, silent.CanSpectate())
	assert.False(t, chat.CanSpectate())
	assert.False(t, silent.CanSendMessage())
	assert.True(t, game.CanEnterCharacter())
	assert.False(t, ClientType{Kind: "telnet"}.Known())
}

type unknownMsg struct{}

func (unknownMsg) clientMsg() {}

func TestVerify(t *testing.T) {
	game := ClientType{Kind: KindGame}
	chat := ClientType{Kind: KindChatOnly}
	silent := ClientType{Kind: KindSilentSpectator}
	character := PresenceCharacter

	tests := []struct {
		name       string
		msg        ClientMsg
		declared   ClientType
		registered bool
		presence   *PresenceKind
		want       bool
	}{
		{"type repeated after handshake", TypeMsg{ClientType: game}, game, false, nil, false},
		{"type differing from declared", TypeMsg{ClientType: chat}, game, false, nil, false},
		{"register before login", RegisterMsg{TokenOrUsername: "alice"}, game, false, nil, true},
		{"register when registered", RegisterMsg{TokenOrUsername: "alice"}, game, true, nil, false},
		{"ping anytime", PingMsg{}, chat, false, &character, true},
		{"general before login", GeneralMsg{Kind: GeneralCommand}, game, false, nil, false},
		{"character list on character screen", GeneralMsg{Kind: GeneralRequestCharacterList}, game, true, nil, true},
		{"character list for chat only", GeneralMsg{Kind: GeneralRequestCharacterList}, chat, true, nil, false},
		{"character list in game", GeneralMsg{Kind: GeneralRequestCharacterList}, game, true, &character, false},
		{"enter character as spectator type", GeneralMsg{Kind: GeneralCharacter}, silent, true, nil, false},
		{"spectate as silent spectator", GeneralMsg{Kind: GeneralSpectate}, silent, true, nil, true},
		{"in game message on character screen", GeneralMsg{Kind: GeneralBreakBlock}, game, true, nil, false},
		{"in game message in game", GeneralMsg{Kind: GeneralBreakBlock}, game, true, &character, true},
		{"chat from silent spectator", GeneralMsg{Kind: GeneralChatMsg}, silent, true, nil, false},
		{"chat from chat only", GeneralMsg{Kind: GeneralChatMsg}, chat, true, nil, true},
		{"terminate always", GeneralMsg{Kind: GeneralTerminate}, chat, true, nil, true},
		{"unknown general kind", GeneralMsg{Kind: "teleport"}, game, true, &character, false},
		{"unknown variant", unknownMsg{}, game, true, &character, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.msg, tt.declared, tt.registered, tt.presence))
		})
	}
}

func TestAliasIsValid(t *testing.T) {
	assert.True(t, AliasIsValid("alice_01-b"))
	assert.True(t, AliasIsValid(strings.Repeat("a", MaxAliasLength)))
	assert.False(t, AliasIsValid(""))
	assert.False(t, AliasIsValid(strings.Repeat("a", MaxAliasLength+1)))
	assert.False(t, AliasIsValid("bad name"))
	assert.False(t, AliasIsValid("émile"))
}

func TestRegisterErrorMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("login: %w", &RegisterError{Code: RegisterBanned, Message: "griefing"})

	assert.ErrorIs(t, err, ErrBanned)
	assert.NotErrorIs(t, err, ErrKicked)

	var rerr *RegisterError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, "griefing", rerr.Message)
	assert.Equal(t, "register: banned: griefing", rerr.Error())
}
