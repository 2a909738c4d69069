package util

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	TokenSecret    string        `mapstructure:"TOKEN_SECRET" validate:"required,min=32"`
	TokenKind      string        `mapstructure:"TOKEN_KIND" validate:"oneof=jwt paseto"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER" validate:"oneof=redis memory"`
	RedisAddress   string        `mapstructure:"REDIS_ADDR" validate:"required_if=StoreDriver redis"`
	RedisPassword  string        `mapstructure:"REDIS_PW"`
	RedisDB        int           `mapstructure:"REDIS_DB" validate:"min=0"`
	Port           string        `mapstructure:"PORT" validate:"required,number"`
	AllowedOrigins []string      `mapstructure:"ALLOWED_ORIGINS"`
	PublicURL      string        `mapstructure:"PUBLIC_URL" validate:"required,url"`
	RoomTTL        time.Duration `mapstructure:"ROOM_TTL" validate:"min=0"`
	StoreTimeout   time.Duration `mapstructure:"STORE_TIMEOUT" validate:"required"`
	FrameRate      int           `mapstructure:"FRAME_RATE" validate:"min=1,max=240"`
	CanvasWidth    float64       `mapstructure:"CANVAS_WIDTH" validate:"gt=50"`
	CanvasHeight   float64       `mapstructure:"CANVAS_HEIGHT" validate:"gt=50"`
	Verbose        bool          `mapstructure:"VERBOSE"`
}

var configKeys = []string{
	"TOKEN_SECRET", "TOKEN_KIND", "STORE_DRIVER", "REDIS_ADDR", "REDIS_PW", "REDIS_DB", "PORT",
	"ALLOWED_ORIGINS", "PUBLIC_URL", "ROOM_TTL", "STORE_TIMEOUT", "FRAME_RATE", "CANVAS_WIDTH",
	"CANVAS_HEIGHT", "VERBOSE",
}

// flag name -> config key
var flagKeys = map[string]string{
	"port":    "PORT",
	"store":   "STORE_DRIVER",
	"verbose": "VERBOSE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TOKEN_KIND", "jwt")
	v.SetDefault("STORE_DRIVER", StoreRedis)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"})
	v.SetDefault("PUBLIC_URL", "http://localhost:8080/")
	v.SetDefault("ROOM_TTL", 12*time.Hour)
	v.SetDefault("STORE_TIMEOUT", 2*time.Second)
	v.SetDefault("FRAME_RATE", 60)
	v.SetDefault("CANVAS_WIDTH", 1280.0)
	v.SetDefault("CANVAS_HEIGHT", 720.0)
	v.SetDefault("VERBOSE", false)
}

// LoadConfig reads .env (if any), the environment, and the changed flags in fs.
// fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	for _, key := range configKeys {
		v.BindEnv(key)
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				v.BindPFlag(key, f)
			}
		}
	}

	// comma separated in the environment
	if raw := v.GetString("ALLOWED_ORIGINS"); raw != "" {
		v.Set("ALLOWED_ORIGINS", splitList(raw))
	}

	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := Validate.Struct(&config); err != nil {
		return nil, err
	}

	Verbose = config.Verbose

	return &config, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
