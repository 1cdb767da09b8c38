package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/creativeprojects/imapnotif/wire"
)

const readBufferSize = 4096

// errWatchStopped is returned by a read waiting for a watch that was stopped in the meantime
var errWatchStopped = errors.New("watch stopped")

// keep selects the untagged responses belonging to a command
type keep func(line wire.Line) bool

func keepAll(wire.Line) bool {
	return true
}

func keepNone(wire.Line) bool {
	return false
}

func keepKeyword(keyword string) keep {
	return func(line wire.Line) bool {
		return line.Keyword() == keyword
	}
}

func keepMessage(keyword string, num uint32) keep {
	return func(line wire.Line) bool {
		if line.Keyword() != keyword {
			return false
		}
		seq, ok := line.Number()
		return ok && seq == num
	}
}

// send writes a command line to the server. A write error closes the session.
func (s *Session) send(command string) error {
	conn := s.connection()
	if conn == nil || s.isShutdown() {
		return lib.ErrSessionClosed
	}
	s.traceSent(command)
	_ = conn.SetWriteDeadline(time.Now().Add(s.commandTimeout))
	if _, err := io.WriteString(conn, command+wire.CRLF); err != nil {
		s.markClosed(mailbox.FailureNetwork)
		return fmt.Errorf("%w: %w", lib.ErrNetwork, err)
	}
	return nil
}

// execute sends a tagged command and waits for its completion.
// Untagged responses received before the completion and selected by keep
// are returned with it; the others stay buffered for the watch loop.
func (s *Session) execute(ctx context.Context, command func(tag string) string, keep keep) (wire.Line, []wire.Line, error) {
	tag := s.tagger.Next()
	if err := s.send(command(tag)); err != nil {
		return wire.Line{}, nil, err
	}

	if err := s.readLock.Lock(ctx); err != nil {
		return wire.Line{}, nil, fmt.Errorf("read lock: %w", err)
	}
	defer s.readLock.Unlock()

	done, err := s.await(ctx, tag, "", s.budget(), nil)
	if err != nil {
		return wire.Line{}, nil, err
	}
	return done, s.drain(wire.TagUntagged, keep), nil
}

// read returns the first response of tag containing what.
// It gives up after budget ticks without data from the server.
func (s *Session) read(ctx context.Context, tag, what string, budget int, stop <-chan struct{}) (wire.Line, error) {
	if err := s.readLock.Lock(ctx); err != nil {
		return wire.Line{}, fmt.Errorf("read lock: %w", err)
	}
	defer s.readLock.Unlock()

	return s.await(ctx, tag, what, budget, stop)
}

// await is read with the read lock held
func (s *Session) await(ctx context.Context, tag, what string, budget int, stop <-chan struct{}) (wire.Line, error) {
	tag = strings.ToLower(tag)

	s.mu.Lock()
	conn := s.conn
	shutdown := s.shutdown
	s.mu.Unlock()

	if stopped(stop) {
		return wire.Line{}, errWatchStopped
	}
	if line, ok := s.popPending(tag, what); ok {
		return line, nil
	}
	if conn == nil {
		return wire.Line{}, lib.ErrSessionClosed
	}

	buffer := make([]byte, readBufferSize)
	for ticks := 0; ticks < budget; {
		if line, ok := s.nextMatch(tag, what); ok {
			return line, nil
		}
		select {
		case <-ctx.Done():
			return wire.Line{}, ctx.Err()
		case <-shutdown:
			return wire.Line{}, lib.ErrSessionClosed
		default:
		}
		if stopped(stop) {
			return wire.Line{}, errWatchStopped
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.tick))
		n, err := conn.Read(buffer)
		if n > 0 {
			_, _ = s.decoder.Write(buffer[:n])
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if n == 0 {
					ticks++
				}
				continue
			}
			if line, ok := s.nextMatch(tag, what); ok {
				return line, nil
			}
			// the connection may have been replaced since the read started
			if stopped(shutdown) {
				return wire.Line{}, lib.ErrSessionClosed
			}
			if errors.Is(err, io.EOF) {
				s.markClosed(0)
				return wire.Line{}, lib.ErrConnectionClosed
			}
			s.markClosed(mailbox.FailureNetwork)
			return wire.Line{}, fmt.Errorf("%w: %w", lib.ErrNetwork, err)
		}
		if n == 0 {
			if stopped(shutdown) {
				return wire.Line{}, lib.ErrSessionClosed
			}
			s.markClosed(0)
			return wire.Line{}, lib.ErrConnectionClosed
		}
	}
	return wire.Line{}, fmt.Errorf("%w: %s %q", lib.ErrProtocolTimeout, tag, what)
}

// popPending returns the oldest buffered response of tag containing what
func (s *Session) popPending(tag, what string) (wire.Line, bool) {
	lines := s.pending[tag]
	for i, line := range lines {
		if !line.Contains(what) {
			continue
		}
		lines = append(lines[:i:i], lines[i+1:]...)
		if len(lines) == 0 {
			delete(s.pending, tag)
		} else {
			s.pending[tag] = lines
		}
		return line, true
	}
	return wire.Line{}, false
}

// nextMatch decodes the lines received so far: the first one matching is
// returned, the ones before it are buffered under their own tag
func (s *Session) nextMatch(tag, what string) (wire.Line, bool) {
	for {
		line, ok := s.decoder.Next()
		if !ok {
			return wire.Line{}, false
		}
		s.traceReceived(line)
		if line.Tag == tag && line.Contains(what) {
			return line, true
		}
		s.pending[line.Tag] = append(s.pending[line.Tag], line)
	}
}

// drain removes the buffered responses of tag selected by keep
func (s *Session) drain(tag string, keep keep) []wire.Line {
	lines := s.pending[tag]
	kept := make([]wire.Line, 0, len(lines))
	remaining := lines[:0]
	for _, line := range lines {
		if keep(line) {
			kept = append(kept, line)
			continue
		}
		remaining = append(remaining, line)
	}
	if len(remaining) == 0 {
		delete(s.pending, tag)
	} else {
		s.pending[tag] = remaining
	}
	return kept
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
