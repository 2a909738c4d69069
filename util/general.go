package util

import (
	"fmt"
	"log"
	"time"
)

const logDate = `2006-01-02T15:04:05.000-07:00`

// Verbose enables Logf output. It is set once from Config at startup.
var Verbose bool

// Logf prints high-frequency diagnostics (snapshots, frames) only in verbose mode
func Logf(format string, args ...any) {
	if !Verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func GetRoomKey(room string) string {
	return fmt.Sprintf("room:%v", room)
}

// channel on which every write to the room hash is announced
func GetRoomChannel(room string) string {
	return fmt.Sprintf("room:%v:changes", room)
}

func GetCareerKey(playerID string) string {
	return fmt.Sprintf("career:%v", playerID)
}
