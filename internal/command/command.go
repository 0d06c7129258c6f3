// Package command turns a decoded RESP frame into a typed, validated
// command value. Parsing is kept separate from execution: arity and
// option-grammar mistakes are caught here, by name, before anything
// touches the keyspace.
package command

import "time"

// Name identifies a supported command, normalized to upper case.
type Name string

const (
	Ping   Name = "PING"
	Echo   Name = "ECHO"
	Set    Name = "SET"
	Get    Name = "GET"
	RPush  Name = "RPUSH"
	LPush  Name = "LPUSH"
	LRange Name = "LRANGE"
	LLen   Name = "LLEN"
	LPop   Name = "LPOP"
	BLPop  Name = "BLPOP"
	XAdd   Name = "XADD"
	XRange Name = "XRANGE"
	XRead  Name = "XREAD"
	Type   Name = "TYPE"
)

// Command is a parsed, arity-checked request. Exactly the field named
// by Name is populated.
type Command struct {
	Name Name

	PingCmd   *PingCommand
	EchoCmd   *EchoCommand
	SetCmd    *SetCommand
	GetCmd    *GetCommand
	PushCmd   *PushCommand
	LRangeCmd *LRangeCommand
	LLenCmd   *LLenCommand
	LPopCmd   *LPopCommand
	BLPopCmd  *BLPopCommand
	XAddCmd   *XAddCommand
	XRangeCmd *XRangeCommand
	XReadCmd  *XReadCommand
	TypeCmd   *TypeCommand
}

// PingCommand is PING [message].
type PingCommand struct {
	Message []byte // nil if no message was given
}

// EchoCommand is ECHO message.
type EchoCommand struct {
	Message []byte
}

// SetCommand is SET key value [EX seconds | PX milliseconds].
type SetCommand struct {
	Key      string
	Value    []byte
	ExpireAt *time.Time
}

// GetCommand is GET key.
type GetCommand struct {
	Key string
}

// PushCommand is RPUSH/LPUSH key value [value ...].
type PushCommand struct {
	Key    string
	Values [][]byte
}

// LRangeCommand is LRANGE key start stop.
type LRangeCommand struct {
	Key         string
	Start, Stop int
}

// LLenCommand is LLEN key.
type LLenCommand struct {
	Key string
}

// LPopCommand is LPOP key [count].
type LPopCommand struct {
	Key      string
	Count    int
	HasCount bool
}

// BLPopCommand is BLPOP key [key ...] timeout.
type BLPopCommand struct {
	Keys    []string
	Timeout time.Duration
}

// XAddCommand is XADD key ID field value [field value ...].
type XAddCommand struct {
	Key    string
	ID     string
	Fields [][2][]byte
}

// XRangeCommand is XRANGE key start end.
type XRangeCommand struct {
	Key        string
	Start, End string
}

// XReadStream is one STREAMS entry of an XREAD command.
type XReadStream struct {
	Key     string
	AfterID string
}

// XReadCommand is XREAD STREAMS key [key ...] id [id ...].
type XReadCommand struct {
	Streams []XReadStream
}

// TypeCommand is TYPE key.
type TypeCommand struct {
	Key string
}
