package room

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/judgegodwins/bubble-royale/store"
)

type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusEnded:
		return "ended"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseStatus(v string) (Status, error) {
	switch v {
	case "waiting":
		return StatusWaiting, nil
	case "playing":
		return StatusPlaying, nil
	case "ended":
		return StatusEnded, nil
	}

	return StatusWaiting, fmt.Errorf("unknown room status %q", v)
}

type Role int

const (
	RoleNone Role = iota
	RoleHost
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Peer returns the opposite role.
func (r Role) Peer() Role {
	switch r {
	case RoleHost:
		return RoleGuest
	case RoleGuest:
		return RoleHost
	}

	return RoleNone
}

type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PlayerState struct {
	ID     string `json:"id"`
	Score  int    `json:"score"`
	Skin   string `json:"skin"`
	Cursor Cursor `json:"cursor"`
}

// NewPlayer is a freshly seated player: no score, cursor at the origin.
func NewPlayer(id, skin string) PlayerState {
	return PlayerState{ID: id, Skin: skin}
}

// Room is the shared document of one match.
type Room struct {
	ID     string       `json:"room_id"`
	Host   *PlayerState `json:"host"`
	Guest  *PlayerState `json:"guest"`
	Status Status       `json:"status"`
}

// Player returns the subtree owned by role, nil when absent.
func (r Room) Player(role Role) *PlayerState {
	switch role {
	case RoleHost:
		return r.Host
	case RoleGuest:
		return r.Guest
	}

	return nil
}

// Document field names. The room is stored flat: "<role>.<field>".
const (
	fieldStatus  = "status"
	fieldID      = "id"
	fieldScore   = "score"
	fieldSkin    = "skin"
	fieldCursorX = "cursor.x"
	fieldCursorY = "cursor.y"
)

func path(role Role, field string) string {
	return role.String() + "." + field
}

// Fields renders the whole room as a document.
func (r Room) Fields() store.Document {
	doc := store.Document{fieldStatus: r.Status.String()}

	for _, role := range []Role{RoleHost, RoleGuest} {
		if p := r.Player(role); p != nil {
			for k, v := range PlayerFields(role, *p) {
				doc[k] = v
			}
		}
	}

	return doc
}

// PlayerFields is the full subtree of one role.
func PlayerFields(role Role, p PlayerState) store.Document {
	doc := SyncFields(role, p.Score, p.Cursor)
	doc[path(role, fieldID)] = p.ID
	doc[path(role, fieldSkin)] = p.Skin

	return doc
}

// SyncFields is the per-frame compound write of one role: score and cursor together.
func SyncFields(role Role, score int, cursor Cursor) store.Document {
	return store.Document{
		path(role, fieldScore):   strconv.Itoa(score),
		path(role, fieldCursorX): strconv.FormatFloat(cursor.X, 'f', -1, 64),
		path(role, fieldCursorY): strconv.FormatFloat(cursor.Y, 'f', -1, 64),
	}
}

// EndedFields marks the room finished.
func EndedFields() store.Document {
	return store.Document{fieldStatus: StatusEnded.String()}
}

// OwnedBy reports whether every field in doc belongs to role's subtree.
func OwnedBy(doc store.Document, role Role) bool {
	prefix := role.String() + "."

	for k := range doc {
		if k == fieldStatus {
			continue
		}
		if !strings.HasPrefix(k, prefix) {
			return false
		}
	}

	return true
}

// Parse decodes a snapshot. A subtree without an id is treated as absent.
func Parse(id string, doc store.Document) (Room, error) {
	status, err := ParseStatus(doc[fieldStatus])
	if err != nil {
		return Room{}, err
	}

	r := Room{ID: id, Status: status}

	if r.Host, err = parsePlayer(RoleHost, doc); err != nil {
		return Room{}, err
	}

	if r.Guest, err = parsePlayer(RoleGuest, doc); err != nil {
		return Room{}, err
	}

	return r, nil
}

func parsePlayer(role Role, doc store.Document) (*PlayerState, error) {
	id, ok := doc[path(role, fieldID)]
	if !ok || id == "" {
		return nil, nil
	}

	p := &PlayerState{ID: id, Skin: doc[path(role, fieldSkin)]}

	var err error

	if v, ok := doc[path(role, fieldScore)]; ok {
		if p.Score, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%v: %w", path(role, fieldScore), err)
		}
	}

	if v, ok := doc[path(role, fieldCursorX)]; ok {
		if p.Cursor.X, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("%v: %w", path(role, fieldCursorX), err)
		}
	}

	if v, ok := doc[path(role, fieldCursorY)]; ok {
		if p.Cursor.Y, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("%v: %w", path(role, fieldCursorY), err)
		}
	}

	return p, nil
}

// JoinFields seats p as guest and starts the match in one write.
func JoinFields(p PlayerState) store.Document {
	doc := PlayerFields(RoleGuest, p)
	doc[fieldStatus] = StatusPlaying.String()

	return doc
}

// CheckJoinable accepts a document only while it is waiting for its guest.
func CheckJoinable(doc store.Document) error {
	r, err := Parse("", doc)
	if err != nil {
		return err
	}

	if r.Status == StatusEnded || r.Host == nil {
		return ErrRoomNotFound
	}

	if r.Guest != nil || r.Status != StatusWaiting {
		return ErrRoomFull
	}

	return nil
}

// WriteUnlessEnded writes fields to the room in one step, refusing with
// ErrRoomEnded once its status is ended. Other writers never make it fail.
func WriteUnlessEnded(ctx context.Context, st store.Store, code string, fields store.Document) error {
	err := st.UpdateUnless(ctx, code, fieldStatus, StatusEnded.String(), fields)
	if errors.Is(err, store.ErrGuarded) {
		return ErrRoomEnded
	}

	return err
}
