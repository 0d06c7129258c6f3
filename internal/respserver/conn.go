package respserver

import (
	"bufio"
	"crypto/rand"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// ClientIDPrefix marks IDs handed out to connections, mirroring the
// prefix convention used for other entity IDs in this codebase.
const ClientIDPrefix = "client-"

// generateClientID returns a new lowercase ULID-based client ID.
func generateClientID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return ClientIDPrefix + strings.ToLower(id.String())
}

// conn wraps one accepted connection with its buffered I/O and
// identity. BLPop suspends the goroutine serving a conn but never
// the conn itself, so no extra state is needed to track blocking.
type conn struct {
	id      string
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	closed  atomic.Bool
}

func newConn(c net.Conn) *conn {
	return &conn{
		id:      generateClientID(),
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
}

func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// remoteIP strips the port from RemoteAddr for use as a rate-limit key.
func (c *conn) remoteIP() string {
	addr := c.RemoteAddr().String()
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
