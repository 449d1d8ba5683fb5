// Package protocol encodes the closed client and server message sets as
// JSON envelopes of the form {"type": ..., "data": ...}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcoot/worldgate/internal/model"
)

// Client message discriminators
const (
	ClientMsgType     = "type"
	ClientMsgRegister = "register"
	ClientMsgGeneral  = "general"
	ClientMsgPing     = "ping"
)

// ErrUnknownMessage is returned when an envelope names no known variant
var ErrUnknownMessage = errors.New("unknown message type")

// Envelope is the wire frame wrapping every message
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode serializes a server message into a frame
func Encode(msg model.ServerMsg) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.MsgType(), err)
	}
	return json.Marshal(Envelope{Type: msg.MsgType(), Data: data})
}

// DecodeServer parses a frame produced by Encode
func DecodeServer(frame []byte) (model.ServerMsg, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}

	switch env.Type {
	case model.MsgRegisterResult:
		return decodeInto[model.RegisterResult](env)
	case model.MsgGameSync:
		return decodeInto[model.GameSync](env)
	case model.MsgPlayerListInit:
		return decodeInto[model.PlayerListInit](env)
	case model.MsgPlayerListAdd:
		return decodeInto[model.PlayerListAdd](env)
	case model.MsgPlayerListRemove:
		return decodeInto[model.PlayerListRemove](env)
	case model.MsgDisconnect:
		return decodeInto[model.Disconnect](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

// EncodeClient serializes a client message into a frame
func EncodeClient(msg model.ClientMsg) ([]byte, error) {
	var typ string
	switch msg.(type) {
	case model.TypeMsg:
		typ = ClientMsgType
	case model.RegisterMsg:
		typ = ClientMsgRegister
	case model.GeneralMsg:
		typ = ClientMsgGeneral
	case model.PingMsg:
		typ = ClientMsgPing
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: data})
}

// DecodeClient parses a frame sent by a client
func DecodeClient(frame []byte) (model.ClientMsg, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}

	switch env.Type {
	case ClientMsgType:
		return decodeInto[model.TypeMsg](env)
	case ClientMsgRegister:
		return decodeInto[model.RegisterMsg](env)
	case ClientMsgGeneral:
		return decodeInto[model.GeneralMsg](env)
	case ClientMsgPing:
		return model.PingMsg{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodeInto[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", env.Type, err)
	}
	return v, nil
}
