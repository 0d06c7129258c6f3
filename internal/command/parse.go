package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/nilbyte/respd/internal/protocol"
)

// Parse validates args (as returned by protocol.ReadCommand) against
// the grammar of the command it names and returns the typed result.
// now is used to resolve SET's EX option to an absolute deadline.
func Parse(args [][]byte, now time.Time) (*Command, error) {
	if len(args) == 0 {
		return nil, errUnknownCommand("")
	}

	name := Name(protocol.NormalizeCommandName(args[0]))
	rest := args[1:]

	switch name {
	case Ping:
		return parsePing(rest)
	case Echo:
		return parseEcho(rest)
	case Set:
		return parseSet(rest, now)
	case Get:
		return parseGet(rest)
	case RPush, LPush:
		return parsePush(name, rest)
	case LRange:
		return parseLRange(rest)
	case LLen:
		return parseLLen(rest)
	case LPop:
		return parseLPop(rest)
	case BLPop:
		return parseBLPop(rest)
	case XAdd:
		return parseXAdd(rest)
	case XRange:
		return parseXRange(rest)
	case XRead:
		return parseXRead(rest)
	case Type:
		return parseType(rest)
	default:
		return nil, errUnknownCommand(string(args[0]))
	}
}

func parsePing(args [][]byte) (*Command, error) {
	switch len(args) {
	case 0:
		return &Command{Name: Ping, PingCmd: &PingCommand{}}, nil
	case 1:
		return &Command{Name: Ping, PingCmd: &PingCommand{Message: args[0]}}, nil
	default:
		return nil, errWrongArity(Ping)
	}
}

func parseEcho(args [][]byte) (*Command, error) {
	if len(args) != 1 {
		return nil, errWrongArity(Echo)
	}
	return &Command{Name: Echo, EchoCmd: &EchoCommand{Message: args[0]}}, nil
}

func parseSet(args [][]byte, now time.Time) (*Command, error) {
	if len(args) < 2 {
		return nil, errWrongArity(Set)
	}

	cmd := &SetCommand{Key: string(args[0]), Value: args[1]}
	opts := args[2:]
	for i := 0; i < len(opts); i++ {
		switch strings.ToUpper(string(opts[i])) {
		case "EX":
			if i+1 >= len(opts) {
				return nil, errSyntax()
			}
			seconds, err := strconv.ParseInt(string(opts[i+1]), 10, 64)
			if err != nil {
				return nil, errNotInteger()
			}
			deadline := now.Add(time.Duration(seconds) * time.Second)
			cmd.ExpireAt = &deadline
			i++
		case "PX":
			if i+1 >= len(opts) {
				return nil, errSyntax()
			}
			ms, err := strconv.ParseInt(string(opts[i+1]), 10, 64)
			if err != nil {
				return nil, errNotInteger()
			}
			deadline := now.Add(time.Duration(ms) * time.Millisecond)
			cmd.ExpireAt = &deadline
			i++
		default:
			return nil, errSyntax()
		}
	}
	return &Command{Name: Set, SetCmd: cmd}, nil
}

func parseGet(args [][]byte) (*Command, error) {
	if len(args) != 1 {
		return nil, errWrongArity(Get)
	}
	return &Command{Name: Get, GetCmd: &GetCommand{Key: string(args[0])}}, nil
}

func parsePush(name Name, args [][]byte) (*Command, error) {
	if len(args) < 2 {
		return nil, errWrongArity(name)
	}
	cmd := &PushCommand{Key: string(args[0]), Values: args[1:]}
	return &Command{Name: name, PushCmd: cmd}, nil
}

func parseLRange(args [][]byte) (*Command, error) {
	if len(args) != 3 {
		return nil, errWrongArity(LRange)
	}
	start, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return nil, errNotInteger()
	}
	stop, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return nil, errNotInteger()
	}
	return &Command{Name: LRange, LRangeCmd: &LRangeCommand{
		Key: string(args[0]), Start: start, Stop: stop,
	}}, nil
}

func parseLLen(args [][]byte) (*Command, error) {
	if len(args) != 1 {
		return nil, errWrongArity(LLen)
	}
	return &Command{Name: LLen, LLenCmd: &LLenCommand{Key: string(args[0])}}, nil
}

func parseLPop(args [][]byte) (*Command, error) {
	switch len(args) {
	case 1:
		return &Command{Name: LPop, LPopCmd: &LPopCommand{Key: string(args[0]), Count: 1}}, nil
	case 2:
		count, err := strconv.Atoi(string(args[1]))
		if err != nil {
			return nil, errNotInteger()
		}
		if count < 0 {
			return nil, errCountNotPositive()
		}
		return &Command{Name: LPop, LPopCmd: &LPopCommand{
			Key: string(args[0]), Count: count, HasCount: true,
		}}, nil
	default:
		return nil, errWrongArity(LPop)
	}
}

func parseBLPop(args [][]byte) (*Command, error) {
	if len(args) < 2 {
		return nil, errWrongArity(BLPop)
	}
	keys := args[:len(args)-1]
	timeoutArg := args[len(args)-1]

	seconds, err := strconv.ParseFloat(string(timeoutArg), 64)
	if err != nil || seconds < 0 {
		return nil, errNotInteger()
	}

	cmd := &BLPopCommand{
		Keys:    make([]string, len(keys)),
		Timeout: time.Duration(seconds * float64(time.Second)),
	}
	for i, k := range keys {
		cmd.Keys[i] = string(k)
	}
	return &Command{Name: BLPop, BLPopCmd: cmd}, nil
}

func parseXAdd(args [][]byte) (*Command, error) {
	if len(args) < 4 || len(args)%2 != 0 {
		return nil, errWrongArity(XAdd)
	}
	fieldArgs := args[2:]
	fields := make([][2][]byte, 0, len(fieldArgs)/2)
	for i := 0; i < len(fieldArgs); i += 2 {
		fields = append(fields, [2][]byte{fieldArgs[i], fieldArgs[i+1]})
	}
	return &Command{Name: XAdd, XAddCmd: &XAddCommand{
		Key: string(args[0]), ID: string(args[1]), Fields: fields,
	}}, nil
}

func parseXRange(args [][]byte) (*Command, error) {
	if len(args) != 3 {
		return nil, errWrongArity(XRange)
	}
	return &Command{Name: XRange, XRangeCmd: &XRangeCommand{
		Key: string(args[0]), Start: string(args[1]), End: string(args[2]),
	}}, nil
}

func parseXRead(args [][]byte) (*Command, error) {
	if len(args) < 3 || strings.ToUpper(string(args[0])) != "STREAMS" {
		return nil, errSyntax()
	}
	rest := args[1:]
	if len(rest)%2 != 0 {
		return nil, errSyntax()
	}
	n := len(rest) / 2
	streams := make([]XReadStream, n)
	for i := 0; i < n; i++ {
		streams[i] = XReadStream{
			Key:     string(rest[i]),
			AfterID: string(rest[n+i]),
		}
	}
	return &Command{Name: XRead, XReadCmd: &XReadCommand{Streams: streams}}, nil
}

func parseType(args [][]byte) (*Command, error) {
	if len(args) != 1 {
		return nil, errWrongArity(Type)
	}
	return &Command{Name: Type, TypeCmd: &TypeCommand{Key: string(args[0])}}, nil
}
