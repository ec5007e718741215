package relay

import (
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/metrics"
)

// Dispatch decodes one inbound frame from connID and applies it.
// Malformed frames and unknown kinds are counted and dropped.
func (r *Relay) Dispatch(connID string, data []byte) {
	f, err := decodeFrame(data)
	if err != nil {
		r.invalid(connID, err)
		return
	}

	switch f.Type {
	case KindAnnounce:
		var p AnnouncePayload
		if err := decodePayload(f, &p); err != nil || p.UserID == "" {
			r.invalid(connID, err)
			return
		}
		r.received(f.Type)
		r.Announce(connID, p.UserID)

	case KindJoinRoom, KindLeaveRoom, KindTypingStart, KindTypingStop:
		var p RoomPayload
		if err := decodePayload(f, &p); err != nil || p.RoomID == "" {
			r.invalid(connID, err)
			return
		}
		r.received(f.Type)
		switch f.Type {
		case KindJoinRoom:
			r.JoinRoom(connID, p.RoomID)
		case KindLeaveRoom:
			r.LeaveRoom(connID, p.RoomID)
		case KindTypingStart:
			r.Typing(connID, p.RoomID, true)
		case KindTypingStop:
			r.Typing(connID, p.RoomID, false)
		}

	case KindSendMessage:
		var p messageRoute
		if err := decodePayload(f, &p); err != nil || p.RoomID == "" {
			r.invalid(connID, err)
			return
		}
		r.received(f.Type)
		r.SendMessage(connID, p.RoomID, f.Payload)

	case KindRoomMembershipChanged:
		var p MembershipPayload
		if err := decodePayload(f, &p); err != nil || p.RoomID == "" {
			r.invalid(connID, err)
			return
		}
		r.received(f.Type)
		r.RoomMembershipChanged(connID, p.RoomID, p.Members)

	default:
		metrics.InvalidFrames.Inc()
		r.log.Debug("unknown event kind", zap.String("conn", connID), zap.String("type", f.Type))
	}
}

func (r *Relay) received(kind string) {
	metrics.EventsReceived.WithLabelValues(kind).Inc()
}

func (r *Relay) invalid(connID string, err error) {
	metrics.InvalidFrames.Inc()
	if err == nil {
		err = errBadFrame
	}
	r.log.Debug("invalid frame", zap.String("conn", connID), zap.Error(err))
}
