package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/relay"
)

// keys:
//
//	pres:user:{userId} = "1" (EX ttl), refreshed every tick while connected
//	lastseen:{userId}  = RFC3339 timestamp written on departure
func onlineKey(userID string) string   { return "pres:user:" + userID }
func lastSeenKey(userID string) string { return "lastseen:" + userID }

type change struct {
	userID string
	online bool
	at     time.Time
}

// Mirror copies relay presence into Redis so other tooling can read it.
// Relay callbacks only enqueue; all Redis I/O happens in Run.
type Mirror struct {
	rdb     *redis.Client
	ttl     time.Duration
	tick    time.Duration
	changes chan change
	log     *zap.Logger
	now     func() time.Time
}

var _ relay.Observer = (*Mirror)(nil)

func NewMirror(rdb *redis.Client, ttl, tick time.Duration, log *zap.Logger) *Mirror {
	return &Mirror{
		rdb:     rdb,
		ttl:     ttl,
		tick:    tick,
		changes: make(chan change, 1024),
		log:     log,
		now:     time.Now,
	}
}

func (m *Mirror) Announced(e relay.Entry) {
	m.enqueue(change{userID: e.UserID, online: true, at: m.now()})
}

func (m *Mirror) Departed(e relay.Entry) {
	m.enqueue(change{userID: e.UserID, online: false, at: m.now()})
}

func (m *Mirror) Typing(string, string, bool) {}

func (m *Mirror) enqueue(c change) {
	select {
	case m.changes <- c:
	default:
		m.log.Warn("presence mirror queue full, change dropped", zap.String("user", c.userID))
	}
}

// Run applies queued changes and refreshes online users until ctx ends.
// Users still online at shutdown get their last-seen stamp.
func (m *Mirror) Run(ctx context.Context) {
	online := make(map[string]struct{})
	t := time.NewTicker(m.tick)
	defer t.Stop()

	for {
		select {
		case c := <-m.changes:
			m.apply(ctx, online, c)
		case <-t.C:
			for userID := range online {
				if err := m.heartbeatUser(ctx, userID); err != nil {
					m.log.Warn("presence heartbeat failed", zap.String("user", userID), zap.Error(err))
				}
			}
		case <-ctx.Done():
			m.flush(online)
			return
		}
	}
}

func (m *Mirror) apply(ctx context.Context, online map[string]struct{}, c change) {
	var err error
	if c.online {
		online[c.userID] = struct{}{}
		err = m.heartbeatUser(ctx, c.userID)
	} else {
		delete(online, c.userID)
		err = m.markOffline(ctx, c.userID, c.at)
	}
	if err != nil {
		m.log.Warn("presence update failed", zap.String("user", c.userID), zap.Bool("online", c.online), zap.Error(err))
	}
}

func (m *Mirror) flush(online map[string]struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := m.now()
	for userID := range online {
		if err := m.markOffline(ctx, userID, now); err != nil {
			m.log.Warn("presence flush failed", zap.String("user", userID), zap.Error(err))
		}
	}
}

func (m *Mirror) heartbeatUser(ctx context.Context, userID string) error {
	return m.rdb.Set(ctx, onlineKey(userID), "1", m.ttl).Err()
}

func (m *Mirror) markOffline(ctx context.Context, userID string, at time.Time) error {
	_, err := m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, onlineKey(userID))
		p.Set(ctx, lastSeenKey(userID), at.UTC().Format(time.RFC3339), 0)
		return nil
	})
	return err
}

// Online reports whether userID has a live heartbeat.
func (m *Mirror) Online(ctx context.Context, userID string) (bool, error) {
	n, err := m.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// LastSeen returns when userID last disconnected. ok is false if never recorded.
func (m *Mirror) LastSeen(ctx context.Context, userID string) (t time.Time, ok bool, err error) {
	v, err := m.rdb.Get(ctx, lastSeenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lastseen %s: %w", userID, err)
	}
	return t, true, nil
}
