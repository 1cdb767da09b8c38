package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/creativeprojects/imapnotif/wire"
)

// Idle waits for the server to push a notification, like "* 3 exists".
// It starts watching the folder when needed and returns the lower-cased response.
// When nothing happened within timeout, it stops watching and returns an empty string.
// It also returns an empty string when a foreground operation stopped the watch.
// When the server refuses to start watching, the watch failure flag is set and
// the error wraps lib.ErrWatchFailed instead of reporting no event.
func (s *Session) Idle(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}

	status := s.Status()
	if status.Closed() {
		return "", lib.ErrSessionClosed
	}
	if !status.Watching() {
		if err := s.writeLock.Lock(ctx); err != nil {
			return "", fmt.Errorf("idle: %w", err)
		}
		err := s.startWatching(ctx)
		s.writeLock.Unlock()
		if err != nil {
			s.fail(mailbox.FailureWatch)
			return "", fmt.Errorf("%w: %w", lib.ErrWatchFailed, err)
		}
	}

	s.mu.Lock()
	watchDone := s.watchDone
	shutdown := s.shutdown
	s.mu.Unlock()
	if watchDone == nil {
		// stopped before we even started waiting
		return "", nil
	}

	budget := int(timeout / s.tick)
	for ticks := 0; ticks < budget; ticks++ {
		if stopped(shutdown) {
			return "", lib.ErrSessionClosed
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-watchDone:
			return "", nil
		default:
		}

		line, err := s.read(ctx, wire.TagUntagged, "", 1, watchDone)
		if err == nil {
			return line.Text(), nil
		}
		if errors.Is(err, lib.ErrProtocolTimeout) {
			continue
		}
		if errors.Is(err, errWatchStopped) {
			if stopped(shutdown) {
				return "", lib.ErrSessionClosed
			}
			return "", nil
		}
		return "", err
	}

	// nothing happened: leave IDLE so the caller can start a new cycle
	if err := s.writeLock.Lock(ctx); err != nil {
		return "", fmt.Errorf("idle: %w", err)
	}
	defer s.writeLock.Unlock()
	if err := s.stopWatching(ctx); err != nil {
		return "", err
	}
	return "", nil
}

// startWatching sends IDLE and waits for the server to confirm. It's a no-op when already watching.
// Any failure closes the session. The write lock must be held.
func (s *Session) startWatching(ctx context.Context) error {
	if s.Status().Watching() {
		return nil
	}
	tag := s.tagger.Next()
	if err := s.send(wire.Idle(tag)); err != nil {
		return err
	}
	if _, err := s.read(ctx, wire.TagContinuation, "", s.budget(), nil); err != nil {
		s.markClosed(0)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != mailbox.StateOpen {
		// closed while we were waiting
		return lib.ErrSessionClosed
	}
	s.state = mailbox.StateWatching
	s.watchTag = tag
	s.watchDone = make(chan struct{})
	s.log.Printf("%s watching", s.name)
	return nil
}

// stopWatching sends DONE and waits for the completion of the IDLE command. It's a no-op when not watching.
// A watch loop waiting in Idle returns as soon as it's called.
// When the completion can't be read, the session stays in watching state with the watch failure flag.
// The write lock must be held.
func (s *Session) stopWatching(ctx context.Context) error {
	s.mu.Lock()
	if s.state != mailbox.StateWatching {
		s.mu.Unlock()
		return nil
	}
	tag := s.watchTag
	if s.watchDone != nil {
		close(s.watchDone)
		s.watchDone = nil
	}
	s.mu.Unlock()

	if err := s.send(wire.Done); err != nil {
		return err
	}
	if _, err := s.read(ctx, tag, "", s.budget(), nil); err != nil {
		if s.isShutdown() {
			return err
		}
		// the completion of IDLE may still arrive later
		s.fail(mailbox.FailureWatch)
		if errors.Is(err, lib.ErrProtocolTimeout) {
			return fmt.Errorf("%w: no answer to DONE: %w", lib.ErrWatchFailed, err)
		}
		return fmt.Errorf("%w: %w", lib.ErrWatchFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == mailbox.StateWatching {
		s.state = mailbox.StateOpen
	}
	s.watchTag = ""
	s.log.Printf("%s stopped watching", s.name)
	return nil
}
