// Package store implements the server's keyspace: strings with expiry,
// lists, and append-only streams, plus the waiter registry backing
// BLPOP. The keyspace and the waiter registry share a single mutex —
// deliberately, since a push and the wake it triggers must be
// indivisible (see waiter.go).
package store

import (
	"sync"
	"time"

	"github.com/nilbyte/respd/internal/telemetry/metric"
)

type kind int

const (
	kindString kind = iota
	kindList
	kindStream
)

type stringValue struct {
	data     []byte
	expireAt *time.Time
}

type entry struct {
	kind   kind
	str    stringValue
	list   [][]byte
	stream []StreamEntry
}

// Store is the shared, concurrency-safe keyspace.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	waiters map[string][]*waiter

	metrics *metric.Registry
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics attaches a metrics registry that the store keeps up to
// date as keys and waiters come and go.
func WithMetrics(reg *metric.Registry) Option {
	return func(s *Store) { s.metrics = reg }
}

// withClock overrides the time source; used by tests that exercise
// expiry without sleeping.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		waiters: make(map[string][]*waiter),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the string value at key. ok is false if the key is absent
// or has expired. A wrong-kind key is reported via ErrWrongType so the
// caller can emit the protocol's WRONGTYPE reply.
func (s *Store) Get(key string) (value []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLiveLocked(key)
	if e == nil {
		return nil, false, nil
	}
	if e.kind != kindString {
		return nil, false, ErrWrongType
	}
	return e.str.data, true, nil
}

// Set stores a string value at key, overwriting any previous value of
// any kind. A nil expireAt means the value never expires.
func (s *Store) Set(key string, value []byte, expireAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.entries[key]
	s.entries[key] = &entry{
		kind: kindString,
		str:  stringValue{data: value, expireAt: expireAt},
	}
	if !existed {
		s.reportKeyspaceSizeLocked()
	}
}

// TypeOf reports the kind of value stored at key, consulting lazy
// expiry for strings. Returns KindNone if the key is absent or expired.
func (s *Store) TypeOf(key string) Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLiveLocked(key)
	if e == nil {
		return KindNone
	}
	switch e.kind {
	case kindString:
		return KindString
	case kindList:
		return KindList
	case kindStream:
		return KindStream
	default:
		return KindNone
	}
}

// getLiveLocked returns the entry at key, purging and returning nil if
// it is an expired string. Caller must hold s.mu.
func (s *Store) getLiveLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if e.kind == kindString && e.str.expireAt != nil && !s.now().Before(*e.str.expireAt) {
		delete(s.entries, key)
		s.reportKeyspaceSizeLocked()
		return nil
	}
	return e
}

// deleteLocked removes key unconditionally. Caller must hold s.mu.
func (s *Store) deleteLocked(key string) {
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.reportKeyspaceSizeLocked()
	}
}

func (s *Store) reportKeyspaceSizeLocked() {
	if s.metrics != nil {
		s.metrics.KeyspaceEntries.Set(float64(len(s.entries)))
	}
}
