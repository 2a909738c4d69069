package util

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testSecret = "YELLOW SUBMARINE, BLACK WIZARDRY"

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("ROOM_TTL", "30m")
	t.Setenv("FRAME_RATE", "30")

	config, err := LoadConfig(nil)
	require.NoError(t, err)

	require.Equal(t, testSecret, config.TokenSecret)
	require.Equal(t, "jwt", config.TokenKind)
	require.Equal(t, StoreRedis, config.StoreDriver)
	require.Equal(t, "localhost:6379", config.RedisAddress)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, config.AllowedOrigins)
	require.Equal(t, 30*time.Minute, config.RoomTTL)
	require.Equal(t, 2*time.Second, config.StoreTimeout)
	require.Equal(t, 30, config.FrameRate)
	require.Equal(t, 1280.0, config.CanvasWidth)
	require.Equal(t, "8080", config.Port)
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("PORT", "9000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("port", "8080", "")
	fs.String("store", StoreRedis, "")
	fs.Bool("verbose", false, "")

	require.NoError(t, fs.Parse([]string{"--store", "memory", "--verbose"}))

	config, err := LoadConfig(fs)
	require.NoError(t, err)

	// unchanged flags leave the environment alone
	require.Equal(t, "9000", config.Port)
	require.Equal(t, StoreMemory, config.StoreDriver)
	require.True(t, config.Verbose)
	require.True(t, Verbose)

	Verbose = false
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		t.Setenv("TOKEN_SECRET", "short")
		t.Setenv("REDIS_ADDR", "localhost:6379")

		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("redis without address", func(t *testing.T) {
		t.Setenv("TOKEN_SECRET", testSecret)
		t.Setenv("REDIS_ADDR", "")

		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("TOKEN_SECRET", testSecret)
		t.Setenv("STORE_DRIVER", "postgres")

		_, err := LoadConfig(nil)
		require.Error(t, err)
	})
}

func TestKeys(t *testing.T) {
	require.Equal(t, "room:AB3K9", GetRoomKey("AB3K9"))
	require.Equal(t, "room:AB3K9:changes", GetRoomChannel("AB3K9"))
	require.Equal(t, "career:p1", GetCareerKey("p1"))
}
