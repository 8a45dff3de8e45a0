package limiter

import (
	"context"
	"sync"
	"time"
)

type attempts struct {
	fails        int
	last         time.Time
	blockedUntil time.Time
}

// Memory is an in-process Limiter used with the memory store driver.
type Memory struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time
	state  map[string]*attempts
	swept  time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, now: time.Now, state: map[string]*attempts{}}
}

func key(email string, ipHash []byte) string { return email + "\x00" + string(ipHash) }

// expired reports whether a no longer affects any decision.
func (a *attempts) expired(now time.Time, p Policy) bool {
	return now.Sub(a.last) > p.Window && !a.blockedUntil.After(now)
}

// sweep drops expired entries, at most once per Window. Callers hold mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.swept) < m.policy.Window {
		return
	}
	m.swept = now
	for k, a := range m.state {
		if a.expired(now, m.policy) {
			delete(m.state, k)
		}
	}
}

func (m *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	a, ok := m.state[key(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if a.blockedUntil.After(now) {
		return false, a.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (m *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key(email, ipHash))
	return nil
}

func (m *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	k := key(email, ipHash)
	a, ok := m.state[k]
	if !ok || now.Sub(a.last) > m.policy.Window {
		a = &attempts{}
		m.state[k] = a
	}
	a.fails++
	a.last = now
	if a.fails < m.policy.MaxFails {
		return false, 0, nil
	}
	a.blockedUntil = now.Add(m.policy.BlockFor)
	return true, m.policy.BlockFor, nil
}
