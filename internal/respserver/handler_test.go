package respserver

import (
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/nilbyte/respd/internal/command"
	"github.com/nilbyte/respd/internal/protocol"
	"github.com/nilbyte/respd/internal/store"
)

func wireOf(t *testing.T, r protocol.Reply) string {
	t.Helper()
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := r.WriteTo(bw); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return buf.String()
}

func newHandlerServer() *Server {
	return &Server{store: store.New()}
}

func mustParse(t *testing.T, parts ...string) *command.Command {
	t.Helper()
	raw := make([][]byte, len(parts))
	for i, p := range parts {
		raw[i] = []byte(p)
	}
	cmd, err := command.Parse(raw, time.Now())
	if err != nil {
		t.Fatalf("Parse(%v): %v", parts, err)
	}
	return cmd
}

func TestExecute_PingEcho(t *testing.T) {
	s := newHandlerServer()

	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "PING"), time.Second)); got != "+PONG\r\n" {
		t.Errorf("PING = %q", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "PING", "hi"), time.Second)); got != "$2\r\nhi\r\n" {
		t.Errorf("PING hi = %q", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "ECHO", "hi"), time.Second)); got != "$2\r\nhi\r\n" {
		t.Errorf("ECHO hi = %q", got)
	}
}

func TestExecute_SetGet(t *testing.T) {
	s := newHandlerServer()

	wireOf(t, s.execute(context.Background(), nil, mustParse(t, "SET", "k", "v"), time.Second))
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "GET", "k"), time.Second)); got != "$1\r\nv\r\n" {
		t.Errorf("GET k = %q", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "GET", "missing"), time.Second)); got != "$-1\r\n" {
		t.Errorf("GET missing = %q, want nil bulk", got)
	}
}

func TestExecute_PushAndRange(t *testing.T) {
	s := newHandlerServer()

	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "RPUSH", "l", "a", "b"), time.Second)); got != ":2\r\n" {
		t.Errorf("RPUSH = %q", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "LLEN", "l"), time.Second)); got != ":2\r\n" {
		t.Errorf("LLEN = %q", got)
	}
	got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "LRANGE", "l", "0", "-1"), time.Second))
	if got != "*2\r\n$1\r\na\r\n$1\r\nb\r\n" {
		t.Errorf("LRANGE = %q", got)
	}
}

func TestExecute_LPopShapes(t *testing.T) {
	s := newHandlerServer()
	s.execute(context.Background(), nil, mustParse(t, "RPUSH", "l", "a", "b", "c"), time.Second)

	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "LPOP", "l"), time.Second)); got != "$1\r\na\r\n" {
		t.Errorf("LPOP l = %q, want single bulk", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "LPOP", "l", "2"), time.Second)); got != "*2\r\n$1\r\nb\r\n$1\r\nc\r\n" {
		t.Errorf("LPOP l 2 = %q, want array", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "LPOP", "l"), time.Second)); got != "$-1\r\n" {
		t.Errorf("LPOP on drained key = %q, want nil bulk", got)
	}
	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "LPOP", "l", "2"), time.Second)); got != "*-1\r\n" {
		t.Errorf("LPOP count on missing key = %q, want nil array", got)
	}
}

func TestExecute_WrongType(t *testing.T) {
	s := newHandlerServer()
	s.execute(context.Background(), nil, mustParse(t, "SET", "k", "v"), time.Second)

	reply := s.execute(context.Background(), nil, mustParse(t, "RPUSH", "k", "x"), time.Second)
	if _, isErr := reply.(errReply); !isErr {
		t.Fatalf("RPUSH on string key = %T, want errReply", reply)
	}
	if got := wireOf(t, reply); got[0] != '-' {
		t.Errorf("RPUSH on string key wire = %q, want an error line", got)
	}
}

func TestExecute_BLPopImmediateAndTimeout(t *testing.T) {
	s := newHandlerServer()
	s.execute(context.Background(), nil, mustParse(t, "RPUSH", "l", "v"), time.Second)

	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "BLPOP", "l", "1"), time.Second)); got != "*2\r\n$1\r\nl\r\n$1\r\nv\r\n" {
		t.Errorf("BLPOP immediate = %q", got)
	}

	start := time.Now()
	got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "BLPOP", "missing", "0.05"), time.Second))
	if got != "*-1\r\n" {
		t.Errorf("BLPOP timeout = %q, want nil array", got)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("BLPOP returned after %v, want at least 50ms", elapsed)
	}
}

func TestExecute_BLPopCanceled(t *testing.T) {
	s := newHandlerServer()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan protocol.Reply, 1)
	go func() {
		done <- s.execute(ctx, nil, mustParse(t, "BLPOP", "missing", "5"), time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case reply := <-done:
		if _, isErr := reply.(errReply); !isErr {
			t.Fatalf("BLPOP canceled = %T, want errReply", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("execute(BLPOP) did not return after cancel")
	}
}

func TestExecute_XAddXRange(t *testing.T) {
	s := newHandlerServer()

	reply := s.execute(context.Background(), nil, mustParse(t, "XADD", "s", "1-1", "f", "v"), time.Second)
	if got := wireOf(t, reply); got != "$3\r\n1-1\r\n" {
		t.Errorf("XADD = %q", got)
	}

	got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "XRANGE", "s", "-", "+"), time.Second))
	want := "*1\r\n*2\r\n$3\r\n1-1\r\n*2\r\n$1\r\nf\r\n$1\r\nv\r\n"
	if got != want {
		t.Errorf("XRANGE = %q, want %q", got, want)
	}
}

func TestExecute_XRead(t *testing.T) {
	s := newHandlerServer()
	s.execute(context.Background(), nil, mustParse(t, "XADD", "s", "1-1", "f", "v"), time.Second)

	got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "XREAD", "STREAMS", "s", "0-0"), time.Second))
	want := "*1\r\n*2\r\n$1\r\ns\r\n*1\r\n*2\r\n$3\r\n1-1\r\n*2\r\n$1\r\nf\r\n$1\r\nv\r\n"
	if got != want {
		t.Errorf("XREAD = %q, want %q", got, want)
	}

	if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "XREAD", "STREAMS", "missing", "0-0"), time.Second)); got != "*-1\r\n" {
		t.Errorf("XREAD on absent stream = %q, want nil array", got)
	}
}

func TestExecute_Type(t *testing.T) {
	s := newHandlerServer()
	s.execute(context.Background(), nil, mustParse(t, "SET", "k", "v"), time.Second)
	s.execute(context.Background(), nil, mustParse(t, "RPUSH", "l", "v"), time.Second)
	s.execute(context.Background(), nil, mustParse(t, "XADD", "st", "1-1", "f", "v"), time.Second)

	cases := map[string]string{"k": "string", "l": "list", "st": "stream", "missing": "none"}
	for key, want := range cases {
		if got := wireOf(t, s.execute(context.Background(), nil, mustParse(t, "TYPE", key), time.Second)); got != "+"+want+"\r\n" {
			t.Errorf("TYPE %s = %q, want +%s\\r\\n", key, got, want)
		}
	}
}
