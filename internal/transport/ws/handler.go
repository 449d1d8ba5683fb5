// Package ws accepts game clients over websockets and feeds their messages
// into the session layer.
package ws

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/protocol"
	"github.com/mcoot/worldgate/internal/session"
)

// InvalidMessage is the kick message sent for frames that fail the gate
const InvalidMessage = "invalid message"

// Acceptor registers connections with the world
type Acceptor interface {
	Accept(transport session.Transport, clientType model.ClientType, ip string) *session.Client
	Disconnect(uid model.Uid, reason model.DisconnectReason)
}

// Config holds configuration for the websocket handler
type Config struct {
	// SendBuffer is the number of outbound frames queued per connection
	SendBuffer int
	// WriteTimeout bounds each frame write
	WriteTimeout time.Duration
	// ReadLimit is the largest inbound frame in bytes
	ReadLimit int64
	// HandshakeTimeout bounds the wait for the client type frame
	HandshakeTimeout time.Duration
}

// DefaultConfig returns default websocket configuration
func DefaultConfig() Config {
	return Config{
		SendBuffer:       256,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        64 * 1024,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Handler upgrades HTTP requests and runs one read loop per connection
type Handler struct {
	acceptor Acceptor
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a Handler
func NewHandler(acceptor Acceptor, cfg Config, logger *slog.Logger) *Handler {
	defaults := DefaultConfig()
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaults.ReadLimit
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	return &Handler{
		acceptor: acceptor,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := remoteIP(r)
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", slog.String("ip", ip), slog.Any("error", err))
		return
	}
	wsConn.SetReadLimit(h.cfg.ReadLimit)

	clientType, err := h.handshake(wsConn)
	if err != nil {
		h.logger.Debug("handshake failed", slog.String("ip", ip), slog.Any("error", err))
		_ = wsConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		_ = wsConn.Close()
		return
	}

	conn := newConn(wsConn, h.cfg.SendBuffer, h.cfg.WriteTimeout, h.logger.With(slog.String("ip", ip)))
	go conn.writePump()

	client := h.acceptor.Accept(conn, clientType, ip)
	h.readLoop(wsConn, conn, client)
}

var (
	errExpectedType   = errors.New("expected client type")
	errUnknownClient  = errors.New("unknown client type")
	errMalformedFrame = errors.New("malformed frame")
)

// handshake reads the first frame, which must declare a known client type
func (h *Handler) handshake(wsConn *websocket.Conn) (model.ClientType, error) {
	_ = wsConn.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	_, payload, err := wsConn.ReadMessage()
	if err != nil {
		return model.ClientType{}, err
	}
	_ = wsConn.SetReadDeadline(time.Time{})

	msg, err := protocol.DecodeClient(payload)
	if err != nil {
		return model.ClientType{}, errMalformedFrame
	}
	typeMsg, ok := msg.(model.TypeMsg)
	if !ok {
		return model.ClientType{}, errExpectedType
	}
	if !typeMsg.ClientType.Known() {
		return model.ClientType{}, errUnknownClient
	}
	return typeMsg.ClientType, nil
}

func (h *Handler) readLoop(wsConn *websocket.Conn, conn *Conn, client *session.Client) {
	uid := client.Uid()
	for {
		_, payload, err := wsConn.ReadMessage()
		if err != nil {
			h.acceptor.Disconnect(uid, model.ReasonClientClosed)
			_ = conn.Close()
			return
		}

		msg, err := protocol.DecodeClient(payload)
		if err != nil || !model.Verify(msg, client.Type(), client.Registered(), client.Presence()) {
			h.logger.Debug("invalid message",
				slog.Uint64("uid", uint64(uid)),
				slog.Bool("decoded", err == nil))
			_ = client.Send(model.Disconnect{Kind: model.DisconnectKicked, Message: InvalidMessage})
			h.acceptor.Disconnect(uid, model.ReasonKicked)
			return
		}

		switch m := msg.(type) {
		case model.RegisterMsg:
			if !client.QueueRegister(m) {
				h.logger.Debug("register inbox full", slog.Uint64("uid", uint64(uid)))
			}
		case model.GeneralMsg:
			h.logger.Debug("general message ignored",
				slog.Uint64("uid", uint64(uid)),
				slog.String("kind", string(m.Kind)))
		}
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
