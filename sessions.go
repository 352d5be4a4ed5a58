package main

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/turbekoff/calcpad/pkg/calc"
)

var (
	ErrSessionsClosed = errors.New("sessions closed")
	ErrSessionExpired = errors.New("session has expired")
)

// Snapshot is the externally visible part of a calculator session.
type Snapshot struct {
	Display string `json:"display"`
	Error   string `json:"error,omitempty"`
	Pending string `json:"pending,omitempty"`
	Waiting bool   `json:"waiting"`
}

// Session serialises access to one calculator controller.
type Session struct {
	mu   sync.Mutex
	ctrl *calc.Controller
}

func NewSession() *Session {
	return &Session{ctrl: calc.NewController()}
}

// Press decodes keys and applies them in order. If any key is unknown,
// nothing is applied.
func (s *Session) Press(keys ...string) (Snapshot, error) {
	events, err := ParseKeys(keys)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.ctrl.Handle(ev)
	}
	return s.snapshot(), nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	st := s.ctrl.State()
	return Snapshot{
		Display: st.Display,
		Error:   st.ErrorMessage,
		Pending: st.Pending.Symbol(),
		Waiting: st.Waiting,
	}
}

// NewSessionID returns a random identifier for sessions created over HTTP.
func NewSessionID() string {
	return uuid.NewString()
}

const sessionShards = 16

type cached struct {
	session  *Session
	expireAt int64
}

type shard struct {
	mu    sync.RWMutex
	items map[string]cached
}

// Sessions is an in-memory TTL store of calculator sessions. Keys are
// spread over shards by their xxhash so unrelated chats do not contend.
type Sessions struct {
	shards      [sessionShards]shard
	cleanerOnce sync.Once
	cleanerCh   chan struct{}
	ttlTimeout  time.Duration
	inShutdown  atomic.Bool
}

func NewSessions(ttlTimeout, cleanupTimeout time.Duration) *Sessions {
	ss := &Sessions{
		cleanerCh:  make(chan struct{}),
		ttlTimeout: ttlTimeout,
	}
	for i := range ss.shards {
		ss.shards[i].items = make(map[string]cached)
	}

	go func() {
		ticker := time.NewTicker(cleanupTimeout)
		defer ticker.Stop()

		for {
			select {
			case <-ss.cleanerCh:
				return
			case <-ticker.C:
				ss.cleanExpiredItems()
			}
		}
	}()
	return ss
}

func (ss *Sessions) shardFor(key string) *shard {
	return &ss.shards[xxhash.Sum64String(key)%sessionShards]
}

// Set stores session under key and restarts its TTL. Once shutdown has
// begun only existing keys are refreshed.
func (ss *Sessions) Set(key string, session *Session) error {
	sh := ss.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, isExists := sh.items[key]
	if ss.inShutdown.Load() && !isExists {
		return ErrSessionsClosed
	}

	sh.items[key] = cached{
		session:  session,
		expireAt: time.Now().Add(ss.ttlTimeout).UnixNano(),
	}
	return nil
}

// Refresh restarts the TTL of the live session under key. It never inserts,
// so a session deleted meanwhile stays deleted.
func (ss *Sessions) Refresh(key string) bool {
	sh := ss.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	item, exists := sh.items[key]
	now := time.Now()
	if !exists || now.UnixNano() > item.expireAt {
		return false
	}
	item.expireAt = now.Add(ss.ttlTimeout).UnixNano()
	sh.items[key] = item
	return true
}

// Get returns the live session under key, or nil.
func (ss *Sessions) Get(key string) *Session {
	sh := ss.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	item, exists := sh.items[key]
	if !exists || time.Now().UnixNano() > item.expireAt {
		return nil
	}
	return item.session
}

func (ss *Sessions) Delete(key string) bool {
	sh := ss.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, exists := sh.items[key]
	delete(sh.items, key)
	return exists
}

func (ss *Sessions) Len() int {
	n := 0
	for i := range ss.shards {
		sh := &ss.shards[i]
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

func (ss *Sessions) IsEmpty() bool {
	return ss.Len() == 0
}

const shutdownIntervalMax = 500 * time.Millisecond

// Shutdown refuses new sessions and waits until the existing ones expire
// or ctx is done.
func (ss *Sessions) Shutdown(ctx context.Context) error {
	ss.inShutdown.Store(true)
	ss.closeCleaner()

	intervalBase := time.Millisecond
	nextInterval := func() time.Duration {
		interval := intervalBase + time.Duration(rand.Intn(int(intervalBase/10)))

		intervalBase *= 2
		if intervalBase > shutdownIntervalMax {
			intervalBase = shutdownIntervalMax
		}
		return interval
	}

	timer := time.NewTimer(nextInterval())
	defer timer.Stop()
	for {
		ss.cleanExpiredItems()
		if ss.IsEmpty() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(nextInterval())
		}
	}
}

// Close drops every session at once.
func (ss *Sessions) Close() error {
	wasClosed := ss.inShutdown.Swap(true)
	ss.closeCleaner()
	if wasClosed {
		return ErrSessionsClosed
	}

	for i := range ss.shards {
		sh := &ss.shards[i]
		sh.mu.Lock()
		clear(sh.items)
		sh.mu.Unlock()
	}
	return nil
}

func (ss *Sessions) cleanExpiredItems() {
	now := time.Now().UnixNano()
	for i := range ss.shards {
		sh := &ss.shards[i]
		sh.mu.Lock()
		for k, v := range sh.items {
			if now > v.expireAt {
				delete(sh.items, k)
			}
		}
		sh.mu.Unlock()
	}
}

func (ss *Sessions) closeCleaner() {
	ss.cleanerOnce.Do(func() {
		close(ss.cleanerCh)
	})
}
