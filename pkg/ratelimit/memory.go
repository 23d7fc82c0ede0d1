package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/clock"
)

// Memory keeps cooldown state in process memory. Entries are created lazily
// and only removed by Sweep.
type Memory struct {
	mu    sync.Mutex
	clock clock.Clock
	state map[string]map[string]time.Time // category -> key -> next allowed
}

// NewMemory returns an in-process limiter. A nil clock uses the real one.
func NewMemory(c clock.Clock) *Memory {
	if c == nil {
		c = clock.Real()
	}
	return &Memory{
		clock: c,
		state: make(map[string]map[string]time.Time),
	}
}

func (m *Memory) Check(_ context.Context, category, key string, window time.Duration) (bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.state[category]
	if !ok {
		keys = make(map[string]time.Time)
		m.state[category] = keys
	}

	if next, ok := keys[key]; ok && next.After(now) {
		return true, nil
	}

	keys[key] = now.Add(window)
	return false, nil
}

// Sweep drops entries whose cooldown has already passed and returns how many
// were removed. Dropping them does not change any Check outcome.
func (m *Memory) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for category, keys := range m.state {
		for key, next := range keys {
			if !next.After(now) {
				delete(keys, key)
				removed++
			}
		}
		if len(keys) == 0 {
			delete(m.state, category)
		}
	}
	return removed
}

// Len returns the number of tracked (category, key) pairs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, keys := range m.state {
		n += len(keys)
	}
	return n
}
