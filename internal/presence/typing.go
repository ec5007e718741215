package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/sraza0098/wisp-backend/internal/relay"
)

// Typing remembers who is typing where. Entries expire after ttl
// unless refreshed by another typing-start; expired ones are pruned on read.
type Typing struct {
	mu     sync.Mutex
	ttl    time.Duration
	byRoom map[string]map[string]time.Time // roomID -> userID -> expiresAt
	now    func() time.Time
}

var _ relay.Observer = (*Typing)(nil)

func NewTyping(ttl time.Duration) *Typing {
	return &Typing{ttl: ttl, byRoom: map[string]map[string]time.Time{}, now: time.Now}
}

func (t *Typing) Announced(relay.Entry) {}

// Departed clears the user everywhere.
func (t *Typing) Departed(e relay.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for roomID, m := range t.byRoom {
		delete(m, e.UserID)
		if len(m) == 0 {
			delete(t.byRoom, roomID)
		}
	}
}

func (t *Typing) Typing(roomID, userID string, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !active {
		if m, ok := t.byRoom[roomID]; ok {
			delete(m, userID)
			if len(m) == 0 {
				delete(t.byRoom, roomID)
			}
		}
		return
	}
	if t.byRoom[roomID] == nil {
		t.byRoom[roomID] = map[string]time.Time{}
	}
	t.byRoom[roomID][userID] = t.now().Add(t.ttl)
}

// InRoom returns the sorted users typing in roomID right now.
func (t *Typing) InRoom(roomID string) []string {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.byRoom[roomID]
	out := []string{}
	for u, exp := range m {
		if now.Before(exp) {
			out = append(out, u)
		} else {
			delete(m, u)
		}
	}
	if m != nil && len(m) == 0 {
		delete(t.byRoom, roomID)
	}
	sort.Strings(out)
	return out
}
