package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_AnnounceTwiceSingleEntry(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "a", "b")

	r.Announce("a", "u1")
	r.Announce("a", "u1")
	r.Announce("b", "u1")

	assert.Equal(t, []Entry{{UserID: "u1", ConnectionID: "a"}}, r.Presence())
	// Every announce still broadcasts the list to everyone.
	assert.Len(t, conns[0].received(EventPresenceList), 3)
	assert.Len(t, conns[1].received(EventPresenceList), 3)
	assert.Equal(t, r.Presence(), lastPresence(t, conns[1]))
}

func TestRelay_PresenceCountAfterDisconnects(t *testing.T) {
	tests := []struct{ n, m int }{
		{n: 1, m: 0},
		{n: 1, m: 1},
		{n: 5, m: 2},
		{n: 10, m: 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.n, tt.m), func(t *testing.T) {
			r := newTestRelay()
			for i := 0; i < tt.n; i++ {
				id := fmt.Sprintf("c%d", i)
				connect(r, id)
				r.Announce(id, fmt.Sprintf("u%d", i))
			}
			for i := 0; i < tt.m; i++ {
				r.Disconnect(fmt.Sprintf("c%d", i))
			}
			assert.Len(t, r.Presence(), tt.n-tt.m)
		})
	}
}

func TestRelay_DisconnectBroadcastsPresence(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "a", "b")
	r.Announce("a", "u1")
	r.Announce("b", "u2")
	conns[1].reset()

	r.Disconnect("a")

	assert.Equal(t, []Entry{{UserID: "u2", ConnectionID: "b"}}, lastPresence(t, conns[1]))
	assert.Equal(t, 1, r.Connections())

	// Disconnect without announce still broadcasts; repeating it does nothing.
	c := connect(r, "anon")[0]
	conns[1].reset()
	r.Disconnect("anon")
	r.Disconnect("anon")
	assert.Len(t, conns[1].received(EventPresenceList), 1)
	assert.Empty(t, c.received(EventPresenceList))
}

func TestRelay_SendMessageRoomScoped(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "A", "B", "C")
	a, b, c := conns[0], conns[1], conns[2]
	r.JoinRoom("A", "r1")
	r.JoinRoom("B", "r1")

	payload := `{"sender":{"id":"u1","firstName":"Ada"},"roomId":"r1","content":"hello"}`
	r.SendMessage("A", "r1", json.RawMessage(payload))

	for _, m := range []*mockConn{a, b} {
		got := m.received(EventMessage)
		require.Len(t, got, 1, m.id)
		assert.JSONEq(t, payload, string(got[0].Payload))
	}
	assert.Empty(t, c.received(EventMessage))
}

func TestRelay_TypingExcludesSender(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRelay(WithObserver(obs))
	conns := connect(r, "A", "B", "C")
	a, b, c := conns[0], conns[1], conns[2]
	r.Announce("A", "u1")
	r.JoinRoom("A", "r1")
	r.JoinRoom("B", "r1")

	r.Typing("A", "r1", true)

	assert.Empty(t, a.received(EventIsTyping))
	assert.Empty(t, c.received(EventIsTyping))
	got := b.received(EventIsTyping)
	require.Len(t, got, 1)
	var p TypingPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &p))
	assert.Equal(t, TypingPayload{RoomID: "r1", UserID: "u1", ConnectionID: "A"}, p)

	r.Typing("A", "r1", false)
	assert.Len(t, b.received(EventNotTyping), 1)
	assert.Empty(t, a.received(EventNotTyping))

	assert.Equal(t, []string{"r1/u1/start", "r1/u1/stop"}, obs.typing)
}

func TestRelay_DisconnectDropsAllRooms(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "A", "B")
	a := conns[0]
	r.JoinRoom("A", "r1")
	r.JoinRoom("A", "r2")
	r.JoinRoom("B", "r1")

	r.Disconnect("A")
	a.reset()

	r.SendMessage("B", "r1", textMessage("r1", "x"))
	r.SendMessage("B", "r2", textMessage("r2", "y"))

	assert.Empty(t, a.received(EventMessage))
	assert.Equal(t, []string{"B"}, r.SubscribersOf("r1"))
	assert.Empty(t, r.SubscribersOf("r2"))
	assert.Empty(t, r.RoomsOf("A"))
}

func TestRelay_LeaveNeverJoinedIsNoop(t *testing.T) {
	r := newTestRelay()
	connect(r, "A", "B")
	r.JoinRoom("B", "r2")

	r.LeaveRoom("A", "r1")

	assert.Equal(t, []string{"B"}, r.SubscribersOf("r2"))
	assert.Empty(t, r.SubscribersOf("r1"))
}

func TestRelay_JoinIdempotent(t *testing.T) {
	r := newTestRelay()
	b := connect(r, "A", "B")[1]
	r.JoinRoom("A", "r1")
	r.JoinRoom("A", "r1")
	assert.Equal(t, []string{"A"}, r.SubscribersOf("r1"))

	r.SendMessage("A", "r1", textMessage("r1", "once"))
	assert.Empty(t, b.received(EventMessage))
}

func TestRelay_RoomMembershipChanged(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "A", "B", "C")
	r.JoinRoom("A", "r1")
	r.JoinRoom("B", "r1")

	members := json.RawMessage(`[{"id":"u1"},{"id":"u2"}]`)
	r.RoomMembershipChanged("A", "r1", members)

	for _, m := range conns[:2] {
		got := m.received(EventRoomUpdated)
		require.Len(t, got, 1)
		var p MembershipPayload
		require.NoError(t, json.Unmarshal(got[0].Payload, &p))
		assert.Equal(t, "r1", p.RoomID)
		assert.JSONEq(t, string(members), string(p.Members))
	}
	assert.Empty(t, conns[2].received(EventRoomUpdated))
}

func TestRelay_UnknownConnectionIgnored(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "A")[0]
	r.JoinRoom("A", "r1")

	r.Announce("ghost", "u1")
	r.JoinRoom("ghost", "r1")
	r.SendMessage("ghost", "r1", textMessage("r1", "boo"))

	assert.Empty(t, r.Presence())
	assert.Equal(t, []string{"A"}, r.SubscribersOf("r1"))
	assert.Empty(t, a.received(EventMessage))
}

func TestRelay_SubjectBoundAnnounce(t *testing.T) {
	r := newTestRelay()
	c := newMockConn("A")
	r.Connect(c, "u1")

	r.Announce("A", "u2")
	assert.Empty(t, r.Presence())
	assert.Empty(t, c.received(EventPresenceList))

	r.Announce("A", "u1")
	assert.Equal(t, []Entry{{UserID: "u1", ConnectionID: "A"}}, r.Presence())
}

func TestRelay_FullBufferDoesNotBlockOthers(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "A", "B")
	conns[0].full = true
	r.JoinRoom("A", "r1")
	r.JoinRoom("B", "r1")

	r.SendMessage("B", "r1", textMessage("r1", "hi"))

	assert.Empty(t, conns[0].received(EventMessage))
	assert.Len(t, conns[1].received(EventMessage), 1)
}

func TestRelay_Observers(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestRelay(WithObserver(obs))
	connect(r, "A", "B")

	r.Announce("A", "u1")
	r.Announce("A", "u1")
	r.Disconnect("A")
	r.Disconnect("B")

	assert.Equal(t, []Entry{{UserID: "u1", ConnectionID: "A"}}, obs.announced)
	assert.Equal(t, []Entry{{UserID: "u1", ConnectionID: "A"}}, obs.departed)
}

func TestRelay_OnlineIn(t *testing.T) {
	r := newTestRelay()
	connect(r, "A", "B", "C")
	r.Announce("A", "u1")
	r.Announce("B", "u2")
	r.JoinRoom("A", "r1")
	r.JoinRoom("B", "r1")
	r.JoinRoom("C", "r1")

	assert.Equal(t, []string{"u1", "u2"}, r.OnlineIn("r1"))
	assert.Equal(t, []string{}, r.OnlineIn("empty"))
}

func TestRelay_Close(t *testing.T) {
	r := newTestRelay()
	conns := connect(r, "A", "B")

	r.Close()

	for _, c := range conns {
		assert.True(t, c.closed)
	}
}

func TestRelay_ConcurrentLifecycle(t *testing.T) {
	r := newTestRelay()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Connect(newMockConn(id), "")
			r.Announce(id, fmt.Sprintf("u%d", i))
			r.JoinRoom(id, "lobby")
			r.SendMessage(id, "lobby", textMessage("lobby", id))
			r.Typing(id, "lobby", true)
			if i%2 == 0 {
				r.Disconnect(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Presence(), n/2)
	assert.Len(t, r.SubscribersOf("lobby"), n/2)
	assert.Equal(t, n/2, r.Connections())
}
