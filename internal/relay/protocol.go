package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event kinds.
const (
	KindAnnounce              = "announce"
	KindJoinRoom              = "join-room"
	KindLeaveRoom             = "leave-room"
	KindSendMessage           = "send-message"
	KindTypingStart           = "typing-start"
	KindTypingStop            = "typing-stop"
	KindRoomMembershipChanged = "room-membership-changed"
)

// Outbound event kinds.
const (
	EventPresenceList = "presence-list"
	EventMessage      = "message"
	EventIsTyping     = "is-typing"
	EventNotTyping    = "not-typing"
	EventRoomUpdated  = "room-updated"
)

var errBadFrame = errors.New("relay: malformed frame")

// Frame is the envelope of every text message on the channel.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type AnnouncePayload struct {
	UserID string `json:"userId"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// messageRoute is the part of a send-message payload the relay reads.
// The payload itself ({sender, roomId, content, ...}) is forwarded untouched.
type messageRoute struct {
	RoomID string `json:"roomId"`
}

type TypingPayload struct {
	RoomID       string `json:"roomId"`
	UserID       string `json:"userId,omitempty"`
	ConnectionID string `json:"connectionId"`
}

type MembershipPayload struct {
	RoomID  string          `json:"roomId"`
	Members json.RawMessage `json:"members"`
}

// Encode builds an outbound frame.
func Encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Frame{Type: kind, Payload: raw})
}

// encodeRaw wraps an already-encoded payload without re-encoding it.
func encodeRaw(kind string, payload json.RawMessage) ([]byte, error) {
	frame, err := json.Marshal(Frame{Type: kind, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", kind, err)
	}
	return frame, nil
}

func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", errBadFrame)
	}
	return f, nil
}

func decodePayload(f Frame, v any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", errBadFrame, f.Type)
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", errBadFrame, f.Type, err)
	}
	return nil
}
