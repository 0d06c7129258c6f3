package store

import (
	"context"
	"time"
)

// blpopResult is the single value ever sent on a waiter's channel.
type blpopResult struct {
	key   string
	value []byte
}

// waiter represents one goroutine blocked in BLPop. It is registered
// in s.waiters under every key it is waiting on; a push to any one of
// those keys removes it from all of them and delivers exactly once.
type waiter struct {
	ch        chan blpopResult
	keys      []string
	delivered bool
}

// dispatchToWaiterLocked hands value directly to the oldest waiter
// blocked on key, if any, bypassing the list entirely. Caller must
// hold s.mu. Returns true if a waiter consumed the value.
func (s *Store) dispatchToWaiterLocked(key string, value []byte) bool {
	queue := s.waiters[key]
	if len(queue) == 0 {
		return false
	}
	w := queue[0]
	s.removeWaiterLocked(w)
	w.delivered = true
	w.ch <- blpopResult{key: key, value: value}
	return true
}

// removeWaiterLocked removes w from every key queue it was registered
// under. Caller must hold s.mu.
func (s *Store) removeWaiterLocked(w *waiter) {
	for _, k := range w.keys {
		q := s.waiters[k]
		for i, cand := range q {
			if cand == w {
				q = append(q[:i], q[i+1:]...)
				break
			}
		}
		if len(q) == 0 {
			delete(s.waiters, k)
		} else {
			s.waiters[k] = q
		}
	}
	if s.metrics != nil {
		s.metrics.WaitersActive.Set(float64(s.waiterCountLocked()))
	}
}

func (s *Store) waiterCountLocked() int {
	seen := make(map[*waiter]struct{})
	for _, q := range s.waiters {
		for _, w := range q {
			seen[w] = struct{}{}
		}
	}
	return len(seen)
}

// BLPop pops the head of the first of keys that has an element,
// checking them in order. If all are empty, it blocks until an
// element is pushed to one of them or timeout elapses (timeout <= 0
// blocks indefinitely, bounded only by ctx). ok is false on timeout.
func (s *Store) BLPop(ctx context.Context, keys []string, timeout time.Duration) (key string, value []byte, ok bool, err error) {
	s.mu.Lock()
	for _, k := range keys {
		e := s.getLiveLocked(k)
		if e == nil {
			continue
		}
		if e.kind != kindList {
			s.mu.Unlock()
			return "", nil, false, ErrWrongType
		}
		if len(e.list) > 0 {
			v := e.list[0]
			e.list = e.list[1:]
			if len(e.list) == 0 {
				s.deleteLocked(k)
			}
			s.mu.Unlock()
			return k, v, true, nil
		}
	}

	w := &waiter{ch: make(chan blpopResult, 1), keys: keys}
	for _, k := range keys {
		s.waiters[k] = append(s.waiters[k], w)
	}
	if s.metrics != nil {
		s.metrics.WaitersActive.Set(float64(s.waiterCountLocked()))
	}
	s.mu.Unlock()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-w.ch:
		return res.key, res.value, true, nil
	case <-timeoutCh:
		if s.drainIfDeliveredLocked(w) {
			res := <-w.ch
			return res.key, res.value, true, nil
		}
		if s.metrics != nil {
			s.metrics.BlockedTimeouts.Inc()
		}
		return "", nil, false, nil
	case <-ctx.Done():
		if s.drainIfDeliveredLocked(w) {
			res := <-w.ch
			return res.key, res.value, true, nil
		}
		return "", nil, false, ctx.Err()
	}
}

// drainIfDeliveredLocked resolves the race between a timeout/cancel
// firing and a concurrent push dispatching to w. It reports whether
// w.ch already has a value waiting, removing w from the registry
// otherwise so no later push can reach it.
func (s *Store) drainIfDeliveredLocked(w *waiter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.delivered {
		return true
	}
	s.removeWaiterLocked(w)
	return false
}
