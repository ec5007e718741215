package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockConn struct {
	id     string
	mu     sync.Mutex
	frames []Frame
	full   bool
	closed bool
}

func newMockConn(id string) *mockConn { return &mockConn{id: id} }

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return ErrSendBufferFull
	}
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// received returns frames of the given type.
func (m *mockConn) received(kind string) []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Frame
	for _, f := range m.frames {
		if f.Type == kind {
			out = append(out, f)
		}
	}
	return out
}

func (m *mockConn) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

func lastPresence(t *testing.T, m *mockConn) []Entry {
	t.Helper()
	frames := m.received(EventPresenceList)
	require.NotEmpty(t, frames, "no presence-list on %s", m.id)
	var entries []Entry
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Payload, &entries))
	return entries
}

type recordingObserver struct {
	mu        sync.Mutex
	announced []Entry
	departed  []Entry
	typing    []string
}

func (o *recordingObserver) Announced(e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.announced = append(o.announced, e)
}

func (o *recordingObserver) Departed(e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.departed = append(o.departed, e)
}

func (o *recordingObserver) Typing(roomID, userID string, active bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state := "stop"
	if active {
		state = "start"
	}
	o.typing = append(o.typing, roomID+"/"+userID+"/"+state)
}

func newTestRelay(opts ...Option) *Relay {
	return New(zap.NewNop(), opts...)
}

func connect(r *Relay, ids ...string) []*mockConn {
	out := make([]*mockConn, 0, len(ids))
	for _, id := range ids {
		c := newMockConn(id)
		r.Connect(c, "")
		out = append(out, c)
	}
	return out
}

// textMessage builds a minimal send-message payload.
func textMessage(roomID, content string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"roomId":%q,"content":%q}`, roomID, content))
}
