package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/protocol"
)

// RecordingTransport is an in-memory session transport that records every
// frame written to it
type RecordingTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool

	// WriteErr, if set, is returned from every WriteFrame
	WriteErr error
}

// NewRecordingTransport creates an empty RecordingTransport
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{}
}

func (t *RecordingTransport) WriteFrame(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.WriteErr != nil {
		return t.WriteErr
	}
	t.frames = append(t.frames, append([]byte(nil), frame...))
	return nil
}

func (t *RecordingTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// Closed reports whether Close was called
func (t *RecordingTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Reset forgets recorded frames
func (t *RecordingTransport) Reset() {
	t.mu.Lock()
	t.frames = nil
	t.mu.Unlock()
}

// Messages decodes every recorded frame in order
func (t *RecordingTransport) Messages(tb testing.TB) []model.ServerMsg {
	tb.Helper()
	t.mu.Lock()
	frames := t.frames
	t.mu.Unlock()

	msgs := make([]model.ServerMsg, 0, len(frames))
	for _, f := range frames {
		msg, err := protocol.DecodeServer(f)
		require.NoError(tb, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

// MessageTypes returns the discriminator of every recorded message in order
func (t *RecordingTransport) MessageTypes(tb testing.TB) []string {
	tb.Helper()
	msgs := t.Messages(tb)
	types := make([]string, len(msgs))
	for i, m := range msgs {
		types[i] = m.MsgType()
	}
	return types
}

// MessagesOf returns the recorded messages of type T in order
func MessagesOf[T model.ServerMsg](tb testing.TB, t *RecordingTransport) []T {
	tb.Helper()
	var out []T
	for _, m := range t.Messages(tb) {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
