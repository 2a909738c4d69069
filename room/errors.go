package room

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrRoomEnded        = errors.New("room has ended")
	ErrStoreUnavailable = errors.New("room store unavailable")
)
