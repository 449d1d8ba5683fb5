// Package session holds the connection handles of connected clients.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/protocol"
)

// RegisterInboxSize bounds how many registration messages may be queued on
// one session before further ones are dropped
const RegisterInboxSize = 4

// Transport is the network side of a session
type Transport interface {
	// WriteFrame delivers one encoded frame. It must not block on the network.
	WriteFrame(frame []byte) error
	Close() error
}

// Prepared is a server message encoded once for sending to many clients
type Prepared struct {
	msgType string
	frame   []byte
}

// Prepare encodes msg for SendPrepared
func Prepare(msg model.ServerMsg) (Prepared, error) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{msgType: msg.MsgType(), frame: frame}, nil
}

// MsgType returns the discriminator of the prepared message
func (p Prepared) MsgType() string {
	return p.msgType
}

// Client is one connected session. The client type and uid never change.
type Client struct {
	uid         model.Uid
	clientType  model.ClientType
	ip          string
	connectedAt time.Time
	transport   Transport

	mu       sync.RWMutex
	locale   *string
	presence *model.PresenceKind

	registered atomic.Bool
	closed     atomic.Bool
	registers  chan model.RegisterMsg
}

func newClient(uid model.Uid, clientType model.ClientType, ip string, connectedAt time.Time, transport Transport) *Client {
	return &Client{
		uid:         uid,
		clientType:  clientType,
		ip:          ip,
		connectedAt: connectedAt,
		transport:   transport,
		registers:   make(chan model.RegisterMsg, RegisterInboxSize),
	}
}

// Uid returns the session id assigned by the store
func (c *Client) Uid() model.Uid {
	return c.uid
}

// Type returns the client type declared at handshake
func (c *Client) Type() model.ClientType {
	return c.clientType
}

// IP returns the remote address the session connected from
func (c *Client) IP() string {
	return c.ip
}

// ConnectedAt returns when the session was accepted
func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Registered reports whether an identity is bound to the session
func (c *Client) Registered() bool {
	return c.registered.Load()
}

// SetRegistered marks whether an identity is bound to the session
func (c *Client) SetRegistered(registered bool) {
	c.registered.Store(registered)
}

// Locale returns the locale the client asked for, if any
func (c *Client) Locale() *string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.locale == nil {
		return nil
	}
	l := *c.locale
	return &l
}

// SetLocale replaces the locale
func (c *Client) SetLocale(locale string) {
	c.mu.Lock()
	c.locale = &locale
	c.mu.Unlock()
}

// Presence returns how the client is present in the world, nil while on the
// character screen
func (c *Client) Presence() *model.PresenceKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.presence == nil {
		return nil
	}
	p := *c.presence
	return &p
}

// SetPresence updates the presence; nil returns the client to the character screen
func (c *Client) SetPresence(p *model.PresenceKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		c.presence = nil
		return
	}
	copied := *p
	c.presence = &copied
}

// QueueRegister queues a registration message for intake. Returns false if
// the inbox is full or the client is closed.
func (c *Client) QueueRegister(msg model.RegisterMsg) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.registers <- msg:
		return true
	default:
		return false
	}
}

// TryRecvRegister takes one queued registration message without blocking
func (c *Client) TryRecvRegister() (model.RegisterMsg, bool) {
	select {
	case msg := <-c.registers:
		return msg, true
	default:
		return model.RegisterMsg{}, false
	}
}

// Send encodes and delivers a message
func (c *Client) Send(msg model.ServerMsg) error {
	p, err := Prepare(msg)
	if err != nil {
		return err
	}
	return c.SendPrepared(p)
}

// SendPrepared delivers an already encoded message
func (c *Client) SendPrepared(p Prepared) error {
	if c.closed.Load() {
		return model.ErrClientClosed
	}
	return c.transport.WriteFrame(p.frame)
}

// Close closes the transport. Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.transport.Close()
}

// Closed reports whether Close has been called
func (c *Client) Closed() bool {
	return c.closed.Load()
}
