package career

import (
	"context"
	"sync"
)

// ScorePerCoin converts a final score into coins: floor(score / ScorePerCoin).
const ScorePerCoin = 10

type Record struct {
	Coins     int64 `json:"coins"`
	HighScore int64 `json:"high_score"`
}

// Ledger persists what a player keeps after a match ends.
type Ledger interface {
	// Credit adds the coins earned by score and raises the high score if beaten.
	Credit(ctx context.Context, playerID string, score int) (Record, error)
	Get(ctx context.Context, playerID string) (Record, error)
}

func Earned(score int) int64 {
	if score <= 0 {
		return 0
	}
	return int64(score / ScorePerCoin)
}

type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]Record)}
}

func (m *MemoryLedger) Credit(ctx context.Context, playerID string, score int) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.records[playerID]
	rec.Coins += Earned(score)
	if int64(score) > rec.HighScore {
		rec.HighScore = int64(score)
	}
	m.records[playerID] = rec

	return rec, nil
}

func (m *MemoryLedger) Get(ctx context.Context, playerID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.records[playerID], nil
}
