package remote

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

const scriptTimeout = 2 * time.Second

// fakeServer plays a script of raw protocol lines against one client connection
type fakeServer struct {
	t        *testing.T
	listener net.Listener
	accepted chan net.Conn
	lines    chan string
	mu       sync.Mutex
	conn     net.Conn
	received []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	server := &fakeServer{
		t:        t,
		listener: listener,
		accepted: make(chan net.Conn, 1),
		lines:    make(chan string, 100),
	}
	go server.serve()
	t.Cleanup(func() {
		_ = listener.Close()
		server.closeConn()
	})
	return server
}

func (f *fakeServer) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		close(f.lines)
		return
	}
	f.accepted <- conn
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			close(f.lines)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.mu.Lock()
		f.received = append(f.received, line)
		f.mu.Unlock()
		f.lines <- line
	}
}

// account points to the fake server
func (f *fakeServer) account() mailbox.Account {
	host, port, err := net.SplitHostPort(f.listener.Addr().String())
	require.NoError(f.t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(f.t, err)
	return mailbox.Account{
		Name:     "test",
		Server:   host,
		Port:     portNum,
		Username: "user",
		Password: "pass",
	}
}

func (f *fakeServer) accept() {
	select {
	case conn := <-f.accepted:
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()
	case <-time.After(scriptTimeout):
		f.t.Error("no connection from the client")
	}
}

// expect waits for the next line from the client, which must contain command.
// It returns the tag and the whole line.
func (f *fakeServer) expect(command string) (string, string) {
	select {
	case line, ok := <-f.lines:
		if !ok {
			f.t.Errorf("connection closed while expecting %q", command)
			return "", ""
		}
		if !strings.Contains(strings.ToUpper(line), command) {
			f.t.Errorf("expected %q but received %q", command, line)
		}
		tag, _, _ := strings.Cut(line, " ")
		return tag, line
	case <-time.After(scriptTimeout):
		f.t.Errorf("timeout expecting %q", command)
		return "", ""
	}
}

// waitClosed waits for the client to close the connection
func (f *fakeServer) waitClosed() {
	for {
		select {
		case _, ok := <-f.lines:
			if !ok {
				return
			}
		case <-time.After(scriptTimeout):
			f.t.Error("timeout waiting for the client to close the connection")
			return
		}
	}
}

func (f *fakeServer) reply(lines ...string) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return
	}
	for _, line := range lines {
		_, _ = conn.Write([]byte(line + "\r\n"))
	}
}

func (f *fakeServer) closeConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

// sent returns a copy of all the lines received from the client
func (f *fakeServer) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *fakeServer) count(command string) int {
	total := 0
	for _, line := range f.sent() {
		if strings.Contains(strings.ToUpper(line), command) {
			total++
		}
	}
	return total
}

// handshake answers the greeting, CAPABILITY, LOGIN and SELECT of an Open
func (f *fakeServer) handshake() {
	f.accept()
	f.reply("* OK fake server ready")
	tag, _ := f.expect("CAPABILITY")
	f.reply("* CAPABILITY IMAP4rev1 IDLE", tag+" OK CAPABILITY completed")
	tag, _ = f.expect("LOGIN")
	f.reply(tag + " OK LOGIN completed")
	tag, _ = f.expect("SELECT")
	f.reply(
		`* FLAGS (\Answered \Flagged \Deleted \Seen \Draft)`,
		"* 2 EXISTS",
		"* 0 RECENT",
		"* OK [UIDVALIDITY 1] UIDs valid",
		tag+" OK [READ-WRITE] SELECT completed",
	)
}

func (f *fakeServer) noop() {
	tag, _ := f.expect("NOOP")
	f.reply(tag + " OK NOOP completed")
}

// logout answers the LOGOUT then waits for the client to hang up
func (f *fakeServer) logout() {
	tag, _ := f.expect("LOGOUT")
	f.reply("* BYE logging out", tag+" OK LOGOUT completed")
	f.waitClosed()
}

// idle accepts an IDLE command and returns its tag
func (f *fakeServer) idle() string {
	tag, _ := f.expect("IDLE")
	f.reply("+ idling")
	return tag
}

func (f *fakeServer) done(idleTag string) {
	f.expect("DONE")
	f.reply(idleTag + " OK IDLE terminated")
}

// run plays the script in the background; the returned channel is closed when it's finished
func (f *fakeServer) run(script func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		script()
	}()
	return done
}

func newTestSession(t *testing.T, account mailbox.Account) *Session {
	t.Helper()
	session, err := NewSession(Config{
		Account:        account,
		Tick:           10 * time.Millisecond,
		CommandTimeout: 300 * time.Millisecond,
		LockTimeout:    5 * time.Second,
		DialTimeout:    time.Second,
		DebugLogger:    lib.NewTestLogger(t, "client"),
	})
	require.NoError(t, err)
	return session
}

func waitScript(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server script did not finish")
	}
}
