package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/session"
)

var errNoSession = errors.New("not in a match")

func HostRoom(ctx context.Context, e Event, c *Client) error {
	var payload PayloadHostRoom

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	sess, err := c.newSession(ctx, payload.Skin)
	if err != nil {
		return err
	}

	code, err := sess.HostRoom()
	if err != nil {
		return err
	}

	return c.PushEventToEgress(EventRoomHosted, PayloadRoomHosted{
		RoomID: code,
		QR:     qrPath(code),
	})
}

func JoinRoom(ctx context.Context, e Event, c *Client) error {
	var payload PayloadJoinRoom

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	sess, err := c.newSession(ctx, payload.Skin)
	if err != nil {
		return err
	}

	err = sess.JoinRoom(payload.RoomID)

	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return c.PushEventToEgress(EventRoomNotFound, PayloadRoom{RoomID: payload.RoomID})
	case errors.Is(err, room.ErrRoomFull):
		return c.PushEventToEgress(EventRoomFull, PayloadRoom{RoomID: payload.RoomID})
	case err != nil:
		return err
	}

	// game_started was already pushed by the session
	return nil
}

func StartGame(ctx context.Context, e Event, c *Client) error {
	var payload PayloadStartGame

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	mode, err := session.ParseMode(payload.Mode)
	if err != nil {
		return err
	}

	if mode == session.ModeMulti {
		return session.ErrInvalidMode
	}

	sess, err := c.newSession(ctx, payload.Skin)
	if err != nil {
		return err
	}

	return sess.StartGame(mode)
}

// PointerFrame turns a raw hand sample into a pointer frame for the live match.
// Frames outside a match are ignored.
func PointerFrame(ctx context.Context, e Event, c *Client) error {
	var payload PayloadPointerFrame

	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return err
	}

	frame := c.tracker.Sample(payload)

	if sess := c.Session(); sess != nil {
		sess.Pointer(frame)
	}

	return nil
}

func LeaveRoom(ctx context.Context, e Event, c *Client) error {
	sess := c.Session()
	if sess == nil {
		return errNoSession
	}

	sess.Leave(true)

	return nil
}
