package protocol

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/worldgate/internal/model"
)

func TestServerMessageFrames(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

	frame, err := Encode(model.PlayerListAdd{Uid: 7, Info: model.PlayerInfo{PlayerAlias: "alice", IsOnline: true, UUID: id}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "player_list_add",
		"data": {"uid": 7, "info": {"player_alias": "alice", "is_online": true, "is_moderator": false, "uuid": "7d444840-9dc0-11d1-b245-5ffdce74fad2"}}
	}`, string(frame))

	msg, err := DecodeServer(frame)
	require.NoError(t, err)
	add, ok := msg.(model.PlayerListAdd)
	require.True(t, ok)
	assert.Equal(t, model.Uid(7), add.Uid)
	assert.Equal(t, id, add.Info.UUID)
}

func TestRegisterErrorSurvivesTheWire(t *testing.T) {
	frame, err := Encode(model.RegisterResult{Err: &model.RegisterError{Code: model.RegisterTooManyPlayers}})
	require.NoError(t, err)

	msg, err := DecodeServer(frame)
	require.NoError(t, err)
	result := msg.(model.RegisterResult)
	assert.False(t, result.OK())
	assert.ErrorIs(t, result.Err, model.ErrTooManyPlayers)
}

func TestDecodeClient(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  model.ClientMsg
	}{
		{"type", `{"type":"type","data":{"client_type":{"kind":"bot","privileged":true}}}`, model.TypeMsg{ClientType: model.ClientType{Kind: model.KindBot, Privileged: true}}},
		{"register", `{"type":"register","data":{"token_or_username":"alice"}}`, model.RegisterMsg{TokenOrUsername: "alice"}},
		{"general", `{"type":"general","data":{"kind":"chat_msg","body":"hi"}}`, model.GeneralMsg{Kind: model.GeneralChatMsg, Body: "hi"}},
		{"ping without data", `{"type":"ping"}`, model.PingMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClient([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeClient([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeServer([]byte(`{"type":"chat"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeClient([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeClient([]byte(`{"type":"register","data":{"token_or_username":5}}`))
	assert.Error(t, err)
}

func TestClientRoundTripPreservesLocale(t *testing.T) {
	locale := "de_DE"
	frame, err := EncodeClient(model.RegisterMsg{TokenOrUsername: "TOKEN1", Locale: &locale})
	require.NoError(t, err)

	msg, err := DecodeClient(frame)
	require.NoError(t, err)
	reg := msg.(model.RegisterMsg)
	require.NotNil(t, reg.Locale)
	assert.Equal(t, "de_DE", *reg.Locale)
}
