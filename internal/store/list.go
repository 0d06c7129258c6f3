package store

// RPush appends values to the tail of the list at key, creating it if
// absent, and returns the resulting length. If a waiter is blocked on
// key via BLPop, the first pushed value is routed directly to it
// instead of landing in the list.
func (s *Store) RPush(key string, values ...[]byte) (int, error) {
	return s.push(key, values, false)
}

// LPush prepends values to the head of the list at key, creating it if
// absent, and returns the resulting length. Values are pushed one at a
// time, so the last argument ends up at the head. Blocked waiters take
// values before they reach the list, one value per waiter, starting
// from the last argument.
func (s *Store) LPush(key string, values ...[]byte) (int, error) {
	return s.push(key, values, true)
}

func (s *Store) push(key string, values [][]byte, left bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A waiter must see the same head-first order the no-waiter path
	// produces. RPUSH lands arguments at the tail in order, so the
	// first argument is first in line for the head. LPUSH lands
	// arguments at the head one at a time, so the *last* argument gets
	// there first; offer values to waiters in that order.
	dispatched := make([]bool, len(values))
	if left {
		for i := len(values) - 1; i >= 0; i-- {
			dispatched[i] = s.dispatchToWaiterLocked(key, values[i])
		}
	} else {
		for i, v := range values {
			dispatched[i] = s.dispatchToWaiterLocked(key, v)
		}
	}

	for i, v := range values {
		if dispatched[i] {
			continue
		}
		e := s.entries[key]
		if e == nil {
			e = &entry{kind: kindList}
			s.entries[key] = e
			s.reportKeyspaceSizeLocked()
		} else if e.kind != kindList {
			return 0, ErrWrongType
		}
		if left {
			e.list = append([][]byte{v}, e.list...)
		} else {
			e.list = append(e.list, v)
		}
	}

	e := s.entries[key]
	if e == nil {
		// Every pushed value was handed straight to waiters; the key
		// was never materialized.
		return 0, nil
	}
	return len(e.list), nil
}

// LLen returns the length of the list at key, or 0 if it does not
// exist.
func (s *Store) LLen(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLiveLocked(key)
	if e == nil {
		return 0, nil
	}
	if e.kind != kindList {
		return 0, ErrWrongType
	}
	return len(e.list), nil
}

// LRange returns the elements of the list at key between start and
// stop inclusive, both of which may be negative to index from the
// tail. Out-of-range bounds are clamped rather than treated as errors.
func (s *Store) LRange(key string, start, stop int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLiveLocked(key)
	if e == nil {
		return nil, nil
	}
	if e.kind != kindList {
		return nil, ErrWrongType
	}

	n := len(e.list)
	start = normalizeIndex(start, n)
	stop = normalizeIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}

	out := make([][]byte, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

// LPop removes and returns up to count elements from the head of the
// list at key. Callers distinguish LPOP key (count 1, single bulk
// reply) from LPOP key count (array reply) at the handler layer.
func (s *Store) LPop(key string, count int) (popped [][]byte, existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLiveLocked(key)
	if e == nil {
		return nil, false, nil
	}
	if e.kind != kindList {
		return nil, false, ErrWrongType
	}

	if count > len(e.list) {
		count = len(e.list)
	}
	popped = make([][]byte, count)
	copy(popped, e.list[:count])
	e.list = e.list[count:]
	if len(e.list) == 0 {
		s.deleteLocked(key)
	}
	return popped, true, nil
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return i
}
