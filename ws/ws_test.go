package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/judgegodwins/bubble-royale/career"
	"github.com/judgegodwins/bubble-royale/room"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/judgegodwins/bubble-royale/tokens"
	"github.com/judgegodwins/bubble-royale/util"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	manager *Manager
	server  *httptest.Server
	store   *store.MemoryStore
	maker   tokens.Maker
}

func newTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	config := &util.Config{
		AllowedOrigins: []string{"http://localhost:3000"},
		StoreTimeout:   time.Second,
		FrameRate:      30,
		CanvasWidth:    1280,
		CanvasHeight:   720,
	}

	maker, err := tokens.NewJWTMaker("YELLOW SUBMARINE, BLACK WIZARDRY")
	require.NoError(t, err)

	st := store.NewMemoryStore()
	m := NewManager(config, st, career.NewMemoryLedger(), maker)

	router := gin.New()
	router.GET("/ws", m.ServeWS)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		m.CloseAll()
		server.Close()
	})

	return &testEnv{manager: m, server: server, store: st, maker: maker}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	token, _, err := e.maker.CreateToken(time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, evtType, traceID string, payload any) {
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(NewEventStruct(evtType, b, traceID)))
}

// expect reads until an event of evtType arrives, skipping anything else.
func expect(t *testing.T, conn *websocket.Conn, evtType string) Event {
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var evt Event
		require.NoError(t, conn.ReadJSON(&evt), "waiting for %v", evtType)

		if evt.Type == evtType {
			return evt
		}
	}
}

func decode[D any](t *testing.T, evt Event) D {
	var v D
	require.NoError(t, json.Unmarshal(evt.Payload, &v))
	return v
}

func TestMatchOverWebsocket(t *testing.T) {
	env := newTestEnv(t)

	host := env.dial(t)
	guest := env.dial(t)

	send(t, host, EventHostRoom, "t1", PayloadHostRoom{Skin: "neon"})
	hosted := decode[PayloadRoomHosted](t, expect(t, host, EventRoomHosted))

	require.Len(t, hosted.RoomID, room.CodeLength)
	require.Equal(t, "/rooms/"+hosted.RoomID+"/qr", hosted.QR)

	send(t, guest, EventJoinRoom, "t2", PayloadJoinRoom{RoomID: strings.ToLower(hosted.RoomID), Skin: "gold"})

	started := decode[struct {
		Mode string `json:"mode"`
		Role string `json:"role"`
	}](t, expect(t, guest, EventGameStarted))
	require.Equal(t, "multi", started.Mode)
	require.Equal(t, "guest", started.Role)

	opponent := decode[room.PlayerState](t, expect(t, guest, EventOpponentState))
	require.Equal(t, "neon", opponent.Skin)

	started = decode[struct {
		Mode string `json:"mode"`
		Role string `json:"role"`
	}](t, expect(t, host, EventGameStarted))
	require.Equal(t, "host", started.Role)

	send(t, guest, EventLeaveRoom, "t3", nil)

	expect(t, guest, EventRoomEnded)
	ended := decode[PayloadRoomEnded](t, expect(t, host, EventRoomEnded))
	require.Equal(t, hosted.RoomID, ended.RoomID)

	doc, err := env.store.Read(context.Background(), hosted.RoomID)
	require.NoError(t, err)
	require.Equal(t, "ended", doc["status"])
}

func TestJoinUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, EventJoinRoom, "t1", PayloadJoinRoom{RoomID: "ZZZZZ"})

	evt := expect(t, conn, EventRoomNotFound)
	require.Equal(t, "ZZZZZ", decode[PayloadRoom](t, evt).RoomID)
}

func TestJoinFullRoom(t *testing.T) {
	env := newTestEnv(t)

	host := env.dial(t)
	guest := env.dial(t)
	late := env.dial(t)

	send(t, host, EventHostRoom, "t1", PayloadHostRoom{})
	code := decode[PayloadRoomHosted](t, expect(t, host, EventRoomHosted)).RoomID

	send(t, guest, EventJoinRoom, "t2", PayloadJoinRoom{RoomID: code})
	expect(t, guest, EventGameStarted)

	send(t, late, EventJoinRoom, "t3", PayloadJoinRoom{RoomID: code})
	expect(t, late, EventRoomFull)
}

func TestSoloOverWebsocket(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, EventStartGame, "t1", PayloadStartGame{Mode: "solo"})

	started := decode[struct {
		Mode string `json:"mode"`
	}](t, expect(t, conn, EventGameStarted))
	require.Equal(t, "solo", started.Mode)

	score := decode[PayloadScore](t, expect(t, conn, EventScore))
	require.Zero(t, score.Score)

	send(t, conn, EventPointerFrame, "", PayloadPointerFrame{Present: true})
	send(t, conn, EventLeaveRoom, "t2", nil)

	ended := decode[PayloadRoomEnded](t, expect(t, conn, EventRoomEnded))
	require.Empty(t, ended.RoomID)
}

func TestErrorsUseTraceID(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	t.Run("unknown event", func(t *testing.T) {
		send(t, conn, "dance", "abc", nil)

		evt := expect(t, conn, "error_abc")
		require.Equal(t, "abc", evt.TraceID)
		require.NotEmpty(t, decode[PayloadError](t, evt).Message)
	})

	t.Run("multi without a room", func(t *testing.T) {
		send(t, conn, EventStartGame, "def", PayloadStartGame{Mode: "multi"})
		expect(t, conn, "error_def")
	})

	t.Run("leave without a match", func(t *testing.T) {
		send(t, conn, EventLeaveRoom, "ghi", nil)
		expect(t, conn, "error_ghi")
	})

	t.Run("invalid payload", func(t *testing.T) {
		send(t, conn, EventJoinRoom, "jkl", PayloadJoinRoom{})
		expect(t, conn, "error_jkl")
	})
}

func TestCheckOrigin(t *testing.T) {
	env := newTestEnv(t)

	token, _, err := env.maker.CreateToken(time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=" + token

	_, _, err = websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://evil.example"}})
	require.Error(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://localhost:3000"}})
	require.NoError(t, err)
	conn.Close()
}

func TestDisconnectEndsMatch(t *testing.T) {
	env := newTestEnv(t)

	host := env.dial(t)
	guest := env.dial(t)

	send(t, host, EventHostRoom, "t1", PayloadHostRoom{})
	code := decode[PayloadRoomHosted](t, expect(t, host, EventRoomHosted)).RoomID

	send(t, guest, EventJoinRoom, "t2", PayloadJoinRoom{RoomID: code})
	expect(t, guest, EventGameStarted)

	guest.Close()

	expect(t, host, EventRoomEnded)
}

func TestNewErrorEvent(t *testing.T) {
	evt, err := NewErrorEvent("xyz", "room is full")
	require.NoError(t, err)

	require.Equal(t, "error_xyz", evt.Type)
	require.Equal(t, "xyz", evt.TraceID)
	require.Equal(t, "room is full", decode[PayloadError](t, evt).Message)
}
