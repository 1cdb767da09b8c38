package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/creativeprojects/imapnotif/ticket"
	"github.com/creativeprojects/imapnotif/wire"
	"github.com/emersion/go-imap"
)

// Session is a connection to one folder of an account.
// It can be used concurrently by a watch loop and by foreground operations:
// commands are serialized by the write lock, socket reads by the read lock.
type Session struct {
	account        mailbox.Account
	folder         string
	name           string
	tick           time.Duration
	commandTimeout time.Duration
	dialTimeout    time.Duration
	log            lib.Logger
	tagger         *wire.Tagger

	readLock  *ticket.Lock
	writeLock *ticket.Lock

	// guarded by mu
	mu           sync.Mutex
	conn         net.Conn
	state        mailbox.State
	failures     mailbox.Failure
	shutdown     chan struct{}
	watchTag     string
	watchDone    chan struct{}
	capabilities map[string]bool
	exists       uint32

	// guarded by readLock
	decoder *wire.Decoder
	pending map[string][]wire.Line
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Account.Server == "" || cfg.Account.Username == "" || cfg.Account.Password == "" {
		return nil, errors.New("missing information from Config object")
	}
	cfg = cfg.withDefaults()

	shutdown := make(chan struct{})
	close(shutdown)

	return &Session{
		account:        cfg.Account,
		folder:         cfg.Folder,
		name:           cfg.Account.String() + "/" + cfg.Folder,
		tick:           cfg.Tick,
		commandTimeout: cfg.CommandTimeout,
		dialTimeout:    cfg.DialTimeout,
		log:            cfg.DebugLogger,
		tagger:         wire.NewTagger("N"),
		readLock:       ticket.New(cfg.LockTimeout),
		writeLock:      ticket.New(cfg.LockTimeout),
		state:          mailbox.StateClosed,
		shutdown:       shutdown,
		capabilities:   make(map[string]bool),
		decoder:        wire.NewDecoder(),
		pending:        make(map[string][]wire.Line),
	}, nil
}

// Name is "account/folder"
func (s *Session) Name() string {
	return s.name
}

func (s *Session) Folder() string {
	return s.folder
}

func (s *Session) Account() mailbox.Account {
	return s.account
}

func (s *Session) Status() mailbox.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mailbox.Status{
		State:    s.state,
		Failures: s.failures,
	}
}

// SupportsIdle returns true when the server advertised the IDLE capability
func (s *Session) SupportsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities["idle"]
}

// Exists returns the number of messages reported when the folder was selected
func (s *Session) Exists() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists
}

// Open connects to the server, logs in and selects the folder.
// It returns false without error when the folder cannot be selected.
func (s *Session) Open(ctx context.Context) (bool, error) {
	if err := s.writeLock.Lock(ctx); err != nil {
		return false, fmt.Errorf("open %s: %w", s.name, err)
	}
	defer s.writeLock.Unlock()

	if err := s.reset(ctx); err != nil {
		return false, fmt.Errorf("open %s: %w", s.name, err)
	}

	address := s.account.Address()
	s.log.Printf("%s connecting to server %s...", s.name, address)
	conn, err := s.dial(ctx, address)
	if err != nil {
		s.fail(mailbox.FailureNetwork)
		return false, fmt.Errorf("%w: cannot connect to server %s: %w", lib.ErrNetwork, address, err)
	}
	s.setConn(conn)

	greeting, err := s.read(ctx, wire.TagUntagged, "", s.budget(), nil)
	if err != nil {
		s.abandon(mailbox.FailureNetwork)
		return false, fmt.Errorf("%w: no greeting from server %s: %w", lib.ErrNetwork, address, err)
	}
	if greeting.Status() == imap.StatusRespBye {
		s.abandon(mailbox.FailureNetwork)
		return false, fmt.Errorf("%w: server %s refused the connection: %s", lib.ErrNetwork, address, greeting.Raw)
	}

	if err := s.readCapabilities(ctx); err != nil {
		s.abandon(mailbox.FailureNetwork)
		return false, err
	}

	if !s.account.TLS && s.hasCapability("starttls") {
		if err := s.startTLS(ctx); err != nil {
			s.abandon(mailbox.FailureNetwork)
			return false, err
		}
	}

	if greeting.Status() != imap.StatusRespPreauth {
		if err := s.login(ctx); err != nil {
			return false, err
		}
	}

	selected, err := s.selectFolder(ctx)
	if err != nil || !selected {
		return false, err
	}

	s.mu.Lock()
	s.state = mailbox.StateOpen
	s.mu.Unlock()
	s.log.Printf("%s opened with %d messages", s.name, s.Exists())
	return true, nil
}

// reset drops any previous connection and the responses still buffered.
// Reads still waiting on the previous connection are released.
func (s *Session) reset(ctx context.Context) error {
	s.mu.Lock()
	previous := s.conn
	s.conn = nil
	s.state = mailbox.StateClosed
	s.failures = 0
	if !stopped(s.shutdown) {
		close(s.shutdown)
	}
	s.shutdown = make(chan struct{})
	s.watchTag = ""
	if s.watchDone != nil {
		close(s.watchDone)
		s.watchDone = nil
	}
	s.capabilities = make(map[string]bool)
	s.exists = 0
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	if err := s.readLock.Lock(ctx); err != nil {
		return err
	}
	s.decoder.Reset()
	s.pending = make(map[string][]wire.Line)
	s.readLock.Unlock()
	return nil
}

func (s *Session) dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.dialTimeout}
	if !s.account.TLS {
		return dialer.DialContext(ctx, "tcp", address)
	}
	tlsDialer := &tls.Dialer{
		NetDialer: dialer,
		Config:    s.tlsConfig(),
	}
	return tlsDialer.DialContext(ctx, "tcp", address)
}

func (s *Session) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         s.account.Server,
		InsecureSkipVerify: s.account.SkipTLSVerification, //nolint:gosec
	}
}

func (s *Session) readCapabilities(ctx context.Context) error {
	done, data, err := s.execute(ctx, wire.Capability, keepAll)
	if err != nil {
		return fmt.Errorf("%w: capability: %w", lib.ErrNetwork, err)
	}
	capabilities := wire.Capabilities(append(data, done))
	s.mu.Lock()
	s.capabilities = capabilities
	s.mu.Unlock()
	s.log.Printf("%s capabilities: %v", s.name, capabilities)
	return nil
}

func (s *Session) hasCapability(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities[name]
}

func (s *Session) startTLS(ctx context.Context) error {
	done, _, err := s.execute(ctx, wire.StartTLS, keepAll)
	if err != nil {
		return fmt.Errorf("%w: starttls: %w", lib.ErrNetwork, err)
	}
	if !done.OK() {
		return fmt.Errorf("%w: starttls: %s", lib.ErrNetwork, done.Raw)
	}

	s.mu.Lock()
	plain := s.conn
	s.mu.Unlock()
	// clear the deadline left by the last read
	_ = plain.SetDeadline(time.Time{})
	tlsConn := tls.Client(plain, s.tlsConfig())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return fmt.Errorf("%w: tls handshake: %w", lib.ErrNetwork, err)
	}
	s.setConn(tlsConn)

	// nothing sent before the handshake can be trusted
	if err := s.readLock.Lock(ctx); err != nil {
		return err
	}
	s.decoder.Reset()
	s.pending = make(map[string][]wire.Line)
	s.readLock.Unlock()

	s.log.Printf("%s connection upgraded to TLS", s.name)
	return s.readCapabilities(ctx)
}

func (s *Session) login(ctx context.Context) error {
	done, _, err := s.execute(ctx, func(tag string) string {
		return wire.Login(tag, s.account.Username, s.account.Password)
	}, keepAll)
	if err != nil {
		s.abandon(mailbox.FailureNetwork)
		return fmt.Errorf("%w: login: %w", lib.ErrNetwork, err)
	}
	if !done.OK() {
		s.abandon(mailbox.FailureLogin)
		return fmt.Errorf("%w as %s: %s", lib.ErrLogin, s.account.Username, done.Raw)
	}
	s.log.Printf("%s logged in as %s", s.name, s.account.Username)
	return nil
}

func (s *Session) selectFolder(ctx context.Context) (bool, error) {
	done, data, err := s.execute(ctx, func(tag string) string {
		return wire.Select(tag, s.folder)
	}, keepAll)
	if err != nil {
		s.abandon(mailbox.FailureNetwork)
		return false, fmt.Errorf("%w: select %q: %w", lib.ErrNetwork, s.folder, err)
	}
	if !done.OK() {
		s.log.Printf("%s cannot select folder: %s", s.name, done.Raw)
		s.fail(mailbox.FailureSelect)
		s.logout(ctx)
		s.abandon(0)
		return false, nil
	}
	for _, line := range data {
		if exists, ok := wire.Exists(line); ok {
			s.mu.Lock()
			s.exists = exists
			s.mu.Unlock()
		}
	}
	return true, nil
}

// logout is best-effort: the server answers with a BYE then the completion
func (s *Session) logout(ctx context.Context) {
	_, _, err := s.execute(ctx, wire.Logout, keepAll)
	if err != nil {
		s.log.Printf("%s logout: %v", s.name, err)
	}
}

func (s *Session) setConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

func (s *Session) connection() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Session) fail(failure mailbox.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures |= failure
}

// markClosed stops any further I/O on the connection by closing the shutdown channel
func (s *Session) markClosed(failure mailbox.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = mailbox.StateClosed
	s.failures |= failure
	s.watchTag = ""
	// a watch loop in progress sees the shutdown channel
	s.watchDone = nil
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
}

func (s *Session) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// abandon marks the session closed and forces the connection down
func (s *Session) abandon(failure mailbox.Failure) {
	s.markClosed(failure)
	if conn := s.connection(); conn != nil {
		forceClose(conn)
	}
}

// Close stops watching and logs out. It never fails: when the connection
// looks broken it's shut down in both directions.
func (s *Session) Close() {
	ctx := context.Background()
	if err := s.writeLock.Lock(ctx); err != nil {
		s.log.Printf("%s close: %v: forcing shutdown", s.name, err)
		s.Abort()
		return
	}
	defer s.writeLock.Unlock()

	if s.connection() == nil {
		s.markClosed(0)
		return
	}

	alive := false
	if s.Status().Watching() {
		alive = s.stopWatching(ctx) == nil
	} else if !s.isShutdown() {
		_, _, err := s.execute(ctx, wire.Noop, keepNone)
		alive = err == nil
	}

	if alive {
		s.logout(ctx)
	}
	s.markClosed(0)

	conn := s.connection()
	if alive {
		_ = conn.Close()
	} else {
		forceClose(conn)
	}
	s.log.Printf("%s closed", s.name)
}

// Abort closes the session without talking to the server.
// Any operation blocked on the connection returns promptly.
func (s *Session) Abort() {
	s.markClosed(0)
	if conn := s.connection(); conn != nil {
		forceClose(conn)
	}
}

// forceClose shuts down both directions of the underlying TCP connection before closing it
func forceClose(conn net.Conn) {
	raw := conn
	if tlsConn, ok := conn.(*tls.Conn); ok {
		raw = tlsConn.NetConn()
	}
	if tcpConn, ok := raw.(*net.TCPConn); ok {
		_ = tcpConn.CloseRead()
		_ = tcpConn.CloseWrite()
	}
	_ = conn.Close()
}

func (s *Session) budget() int {
	ticks := int(s.commandTimeout / s.tick)
	if ticks < 1 {
		return 1
	}
	return ticks
}
