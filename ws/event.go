package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/judgegodwins/bubble-royale/pointer"
	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/session"
	"github.com/judgegodwins/bubble-royale/util"
)

type Event struct {
	Type    string          `json:"type"`
	TraceID string          `json:"trace_id"`
	Payload json.RawMessage `json:"payload"`
}

type EventHandler func(ctx context.Context, evt Event, c *Client) error

// inbound
const (
	EventHostRoom     = "host_room"
	EventJoinRoom     = "join_room"
	EventStartGame    = "start_game"
	EventPointerFrame = "pointer_frame"
	EventLeaveRoom    = "leave_room"
)

// outbound
const (
	EventError         = "error"
	EventRoomHosted    = "room_hosted"
	EventGameStarted   = "game_started"
	EventScore         = "score"
	EventOpponentState = "opponent_state"
	EventRoomEnded     = "room_ended"
	EventRoomNotFound  = "room_not_found"
	EventRoomFull      = "room_full"
)

type PayloadError struct {
	Message string `json:"message"`
}

type PayloadHostRoom struct {
	Skin string `json:"skin" validate:"max=32"`
}

type PayloadJoinRoom struct {
	RoomID string `json:"room_id" validate:"required"`
	Skin   string `json:"skin" validate:"max=32"`
}

type PayloadStartGame struct {
	Mode string `json:"mode" validate:"omitempty,oneof=solo multi"`
	Skin string `json:"skin" validate:"max=32"`
}

type PayloadPointerFrame = pointer.Hand

type PayloadRoom struct {
	RoomID string `json:"room_id"`
}

type PayloadRoomHosted struct {
	RoomID string `json:"room_id"`
	QR     string `json:"qr"`
}

type PayloadGameStarted struct {
	Mode session.Mode `json:"mode"`
	Role room.Role    `json:"role"`
}

type PayloadScore struct {
	Score int `json:"score"`
}

type PayloadOpponentState = room.PlayerState

type PayloadRoomEnded struct {
	RoomID    string `json:"room_id,omitempty"`
	Score     int    `json:"score"`
	Earned    int64  `json:"earned"`
	Coins     int64  `json:"coins"`
	HighScore int64  `json:"high_score"`
}

// decodePayload unmarshals an inbound payload into v and validates it.
func decodePayload(evt Event, v any) error {
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, v); err != nil {
			return err
		}
	}

	return util.Validate.Struct(v)
}

func NewEvent(evtType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)

	if err != nil {
		return Event{}, err
	}

	evt := NewEventStruct(evtType, b, "")

	return evt, nil
}

func NewErrorEvent(traceId, message string) (Event, error) {
	payload := PayloadError{Message: message}
	b, err := json.Marshal(payload)

	if err != nil {
		return Event{}, err
	}

	evt := NewEventStruct(fmt.Sprintf("%v_%v", EventError, traceId), b, traceId)

	return evt, nil
}

func NewEventStruct(evtType string, payload []byte, traceId string) Event {
	return Event{
		Type:    evtType,
		TraceID: traceId,
		Payload: payload,
	}
}

// qrPath is where the share image for a room is served.
func qrPath(code string) string {
	return fmt.Sprintf("/rooms/%v/qr", code)
}
