package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/creativeprojects/imapnotif/wire"
)

// lockForeground takes the write lock and stops watching the folder.
// The lock is not held when an error is returned.
func (s *Session) lockForeground(ctx context.Context) error {
	if err := s.writeLock.Lock(ctx); err != nil {
		return err
	}
	status := s.Status()
	if status.Closed() {
		s.writeLock.Unlock()
		return lib.ErrSessionClosed
	}
	if status.Watching() {
		if err := s.stopWatching(ctx); err != nil {
			s.writeLock.Unlock()
			return fmt.Errorf("%w: cannot proceed while watching: %w", lib.ErrState, err)
		}
	}
	return nil
}

// Fetch downloads a message, or only its From, Date and Subject fields when headerOnly is set.
// It returns lib.ErrRejected when the server has no such message.
func (s *Session) Fetch(ctx context.Context, num uint32, headerOnly bool) (*mailbox.Message, error) {
	if err := s.lockForeground(ctx); err != nil {
		return nil, fmt.Errorf("fetch %d: %w", num, err)
	}
	defer s.writeLock.Unlock()

	done, data, err := s.execute(ctx, func(tag string) string {
		return wire.Fetch(tag, num, headerOnly)
	}, keepMessage("fetch", num))
	if err != nil {
		return nil, fmt.Errorf("fetch %d: %w", num, err)
	}
	if !done.OK() {
		return nil, fmt.Errorf("fetch %d: %w: %s", num, lib.ErrRejected, done.Raw)
	}
	raw, found := wire.FetchLiteral(data, num)
	if !found {
		return nil, fmt.Errorf("fetch %d: %w: no content returned", num, lib.ErrRejected)
	}
	return mailbox.ParseMessage(num, raw, headerOnly)
}

// Poll returns the numbers of the unseen messages, in the order sent by the server
func (s *Session) Poll(ctx context.Context) ([]uint32, error) {
	if err := s.lockForeground(ctx); err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	defer s.writeLock.Unlock()

	done, data, err := s.execute(ctx, wire.SearchUnseen, keepKeyword("search"))
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	if !done.OK() {
		return nil, fmt.Errorf("poll: %w: %s", lib.ErrRejected, done.Raw)
	}
	return wire.SearchResults(data)
}

// MarkRead adds the \Seen flag to the message. It returns false when the server did not answer in time.
func (s *Session) MarkRead(ctx context.Context, num uint32) (bool, error) {
	if err := s.lockForeground(ctx); err != nil {
		return false, fmt.Errorf("mark read %d: %w", num, err)
	}
	defer s.writeLock.Unlock()

	done, _, err := s.execute(ctx, func(tag string) string {
		return wire.Store(tag, num)
	}, keepMessage("fetch", num))
	if err != nil {
		if errors.Is(err, lib.ErrProtocolTimeout) {
			s.log.Printf("%s mark read %d: %v", s.name, num, err)
			return false, nil
		}
		return false, fmt.Errorf("mark read %d: %w", num, err)
	}
	if !done.OK() {
		s.log.Printf("%s mark read %d: %s", s.name, num, done.Raw)
	}
	return true, nil
}
