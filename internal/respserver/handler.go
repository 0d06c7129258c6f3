package respserver

import (
	"context"
	"errors"
	"time"

	"github.com/nilbyte/respd/internal/command"
	"github.com/nilbyte/respd/internal/protocol"
	"github.com/nilbyte/respd/internal/store"
)

// execute runs a parsed command against the store and returns the
// reply to write back. Storage errors (WRONGTYPE) are surfaced the
// same way parse errors are, wrapped in errReply so dispatch can tag
// the outcome metric correctly.
func (s *Server) execute(ctx context.Context, c *conn, cmd *command.Command, writeTimeout time.Duration) protocol.Reply {
	switch cmd.Name {
	case command.Ping:
		if msg := cmd.PingCmd.Message; msg != nil {
			return protocol.Bulk(msg)
		}
		return protocol.SimpleString("PONG")

	case command.Echo:
		return protocol.Bulk(cmd.EchoCmd.Message)

	case command.Set:
		s.store.Set(cmd.SetCmd.Key, cmd.SetCmd.Value, cmd.SetCmd.ExpireAt)
		return protocol.SimpleString("OK")

	case command.Get:
		v, ok, err := s.store.Get(cmd.GetCmd.Key)
		if err != nil {
			return wrongType(err)
		}
		if !ok {
			return protocol.NilBulk
		}
		return protocol.Bulk(v)

	case command.RPush:
		n, err := s.store.RPush(cmd.PushCmd.Key, cmd.PushCmd.Values...)
		if err != nil {
			return wrongType(err)
		}
		return protocol.Integer(int64(n))

	case command.LPush:
		n, err := s.store.LPush(cmd.PushCmd.Key, cmd.PushCmd.Values...)
		if err != nil {
			return wrongType(err)
		}
		return protocol.Integer(int64(n))

	case command.LRange:
		items, err := s.store.LRange(cmd.LRangeCmd.Key, cmd.LRangeCmd.Start, cmd.LRangeCmd.Stop)
		if err != nil {
			return wrongType(err)
		}
		return protocol.BulkArray(items)

	case command.LLen:
		n, err := s.store.LLen(cmd.LLenCmd.Key)
		if err != nil {
			return wrongType(err)
		}
		return protocol.Integer(int64(n))

	case command.LPop:
		return s.execLPop(cmd.LPopCmd)

	case command.BLPop:
		return s.execBLPop(ctx, cmd.BLPopCmd)

	case command.XAdd:
		id, err := s.store.XAdd(cmd.XAddCmd.Key, cmd.XAddCmd.ID, cmd.XAddCmd.Fields)
		if err != nil {
			return wrongType(err)
		}
		return protocol.BulkString(id)

	case command.XRange:
		entries, err := s.store.XRange(cmd.XRangeCmd.Key, cmd.XRangeCmd.Start, cmd.XRangeCmd.End)
		if err != nil {
			return wrongType(err)
		}
		return streamEntriesReply(entries)

	case command.XRead:
		return s.execXRead(cmd.XReadCmd)

	case command.Type:
		return protocol.SimpleString(string(s.store.TypeOf(cmd.TypeCmd.Key)))

	default:
		return errReply{protocol.Err("ERR unknown command")}
	}
}

func (s *Server) execLPop(cmd *command.LPopCommand) protocol.Reply {
	popped, existed, err := s.store.LPop(cmd.Key, cmd.Count)
	if err != nil {
		return wrongType(err)
	}
	if !cmd.HasCount {
		if !existed || len(popped) == 0 {
			return protocol.NilBulk
		}
		return protocol.Bulk(popped[0])
	}
	if !existed {
		return protocol.NilArray
	}
	return protocol.BulkArray(popped)
}

func (s *Server) execBLPop(ctx context.Context, cmd *command.BLPopCommand) protocol.Reply {
	key, value, ok, err := s.store.BLPop(ctx, cmd.Keys, cmd.Timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errReply{protocol.Err("ERR client connection closed")}
		}
		return wrongType(err)
	}
	if !ok {
		return protocol.NilArray
	}
	return protocol.Array(protocol.BulkString(key), protocol.Bulk(value))
}

func (s *Server) execXRead(cmd *command.XReadCommand) protocol.Reply {
	reads := make([]store.StreamRead, len(cmd.Streams))
	for i, st := range cmd.Streams {
		reads[i] = store.StreamRead{Key: st.Key, AfterID: st.AfterID}
	}

	results, err := s.store.XRead(reads)
	if err != nil {
		return wrongType(err)
	}
	if len(results) == 0 {
		return protocol.NilArray
	}

	elems := make([]protocol.Reply, len(results))
	for i, r := range results {
		elems[i] = protocol.Array(protocol.BulkString(r.Key), streamEntriesReply(r.Entries))
	}
	return protocol.Array(elems...)
}

func streamEntriesReply(entries []store.StreamEntry) protocol.Reply {
	elems := make([]protocol.Reply, len(entries))
	for i, e := range entries {
		fieldElems := make([]protocol.Reply, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			fieldElems = append(fieldElems, protocol.Bulk(f[0]), protocol.Bulk(f[1]))
		}
		elems[i] = protocol.Array(
			protocol.BulkString(e.ID),
			protocol.Array(fieldElems...),
		)
	}
	return protocol.Array(elems...)
}

func wrongType(err error) protocol.Reply {
	return errReply{protocol.Err(err.Error())}
}
