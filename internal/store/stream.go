package store

import (
	"fmt"
	"strconv"
	"strings"
)

// StreamEntry is one record appended to a stream, keyed by an
// ID of the form "<milliseconds>-<sequence>".
type StreamEntry struct {
	ID     string
	Fields [][2][]byte
}

// StreamRead names one stream and the ID after which the caller wants
// entries, for use with XRead.
type StreamRead struct {
	Key     string
	AfterID string
}

// StreamReadResult pairs a stream's key with the entries XRead found
// for it.
type StreamReadResult struct {
	Key     string
	Entries []StreamEntry
}

// XAdd appends one entry to the stream at key, creating it if absent,
// and returns the entry's resolved ID. idSpec is the caller-supplied
// ID expression: "*" (auto ms and sequence), "<ms>-*" (auto sequence
// within that ms), or "<ms>-<seq>" (fully explicit). The resolved ID
// must be strictly greater than the stream's current last ID.
func (s *Store) XAdd(key, idSpec string, fields [][2][]byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		e = &entry{kind: kindStream}
	} else if e.kind != kindStream {
		return "", ErrWrongType
	}

	lastMs, lastSeq := int64(0), int64(0)
	if n := len(e.stream); n > 0 {
		lastMs, lastSeq, _ = parseStreamID(e.stream[n-1].ID)
	}

	id, err := resolveStreamID(idSpec, s.now().UnixMilli(), lastMs, lastSeq)
	if err != nil {
		return "", err
	}

	e.stream = append(e.stream, StreamEntry{ID: id, Fields: fields})
	if s.entries[key] == nil {
		s.entries[key] = e
		s.reportKeyspaceSizeLocked()
	}
	return id, nil
}

// XRange returns entries in the stream at key with IDs between start
// and end inclusive. "-" and "+" denote the lowest and highest
// possible IDs.
func (s *Store) XRange(key, start, end string) ([]StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getLiveLocked(key)
	if e == nil {
		return nil, nil
	}
	if e.kind != kindStream {
		return nil, ErrWrongType
	}

	startMs, startSeq, err := parseRangeBound(start, false)
	if err != nil {
		return nil, fmt.Errorf("ERR invalid stream ID %q: %w", start, err)
	}
	endMs, endSeq, err := parseRangeBound(end, true)
	if err != nil {
		return nil, fmt.Errorf("ERR invalid stream ID %q: %w", end, err)
	}

	var out []StreamEntry
	for _, se := range e.stream {
		ms, seq, _ := parseStreamID(se.ID)
		if idLess(ms, seq, startMs, startSeq) {
			continue
		}
		if idLess(endMs, endSeq, ms, seq) {
			continue
		}
		out = append(out, se)
	}
	return out, nil
}

// XRead returns, for each requested stream, the entries with an ID
// strictly greater than the given AfterID. A bare "<ms>" AfterID stands
// for the highest ID within that millisecond, so only later
// milliseconds match. A stream with no new entries is omitted from the
// result.
func (s *Store) XRead(reads []StreamRead) ([]StreamReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []StreamReadResult
	for _, r := range reads {
		e := s.getLiveLocked(r.Key)
		if e == nil {
			continue
		}
		if e.kind != kindStream {
			return nil, ErrWrongType
		}

		afterMs, afterSeq, err := parseStreamID(r.AfterID)
		if err != nil {
			return nil, fmt.Errorf("ERR invalid stream ID %q: %w", r.AfterID, err)
		}
		if !strings.Contains(r.AfterID, "-") {
			afterSeq = maxInt64
		}

		var matched []StreamEntry
		for _, se := range e.stream {
			ms, seq, _ := parseStreamID(se.ID)
			if idLess(afterMs, afterSeq, ms, seq) {
				matched = append(matched, se)
			}
		}
		if len(matched) > 0 {
			out = append(out, StreamReadResult{Key: r.Key, Entries: matched})
		}
	}
	return out, nil
}

func resolveStreamID(spec string, nowMs, lastMs, lastSeq int64) (string, error) {
	var ms, seq int64
	var autoSeq bool

	switch {
	case spec == "*":
		ms = nowMs
		autoSeq = true
	case strings.HasSuffix(spec, "-*"):
		msPart := strings.TrimSuffix(spec, "-*")
		parsed, err := strconv.ParseInt(msPart, 10, 64)
		if err != nil {
			return "", fmt.Errorf("ERR invalid stream ID %q", spec)
		}
		ms = parsed
		autoSeq = true
	default:
		parsedMs, parsedSeq, err := parseStreamID(spec)
		if err != nil {
			return "", fmt.Errorf("ERR invalid stream ID %q", spec)
		}
		ms, seq = parsedMs, parsedSeq
	}

	if autoSeq {
		if ms == lastMs {
			seq = lastSeq + 1
		} else {
			seq = 0
		}
	} else if ms == 0 && seq == 0 {
		return "", fmt.Errorf("ERR The ID specified in XADD must be greater than 0-0")
	}

	if ms < lastMs || (ms == lastMs && seq <= lastSeq) {
		return "", fmt.Errorf("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	}
	return formatStreamID(ms, seq), nil
}

func parseStreamID(id string) (ms, seq int64, err error) {
	parts := strings.SplitN(id, "-", 2)
	ms, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if len(parts) == 1 {
		return ms, 0, nil
	}
	seq, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return ms, seq, nil
}

// parseRangeBound parses a XRANGE endpoint, honoring "-" and "+" as
// the minimum and maximum IDs and a bare "<ms>" as "<ms>-0" (start) or
// "<ms>-maxint" (end).
func parseRangeBound(bound string, isEnd bool) (ms, seq int64, err error) {
	switch bound {
	case "-":
		return 0, 0, nil
	case "+":
		return maxInt64, maxInt64, nil
	}
	if !strings.Contains(bound, "-") {
		ms, err = strconv.ParseInt(bound, 10, 64)
		if err != nil {
			return 0, 0, err
		}
		if isEnd {
			return ms, maxInt64, nil
		}
		return ms, 0, nil
	}
	return parseStreamID(bound)
}

const maxInt64 = int64(1<<63 - 1)

func idLess(ms1, seq1, ms2, seq2 int64) bool {
	if ms1 != ms2 {
		return ms1 < ms2
	}
	return seq1 < seq2
}

func formatStreamID(ms, seq int64) string {
	return strconv.FormatInt(ms, 10) + "-" + strconv.FormatInt(seq, 10)
}
