// Package watcher keeps a mailbox session alive and notifies about new messages
package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/creativeprojects/imapnotif/notify"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

const (
	DefaultReconnectInterval = time.Minute
	// DefaultWaitInterval is how often the session is checked when the server cannot push new messages
	DefaultWaitInterval = time.Second
)

// Mailbox is implemented by remote.Session
type Mailbox interface {
	Name() string
	Folder() string
	Account() mailbox.Account
	Open(ctx context.Context) (bool, error)
	Fetch(ctx context.Context, num uint32, headerOnly bool) (*mailbox.Message, error)
	Poll(ctx context.Context) ([]uint32, error)
	Idle(ctx context.Context, timeout time.Duration) (string, error)
	MarkRead(ctx context.Context, num uint32) (bool, error)
	Close()
	Abort()
	Status() mailbox.Status
	SupportsIdle() bool
}

type Config struct {
	IdleTimeout       time.Duration
	PollInterval      time.Duration
	ReconnectInterval time.Duration
	WaitInterval      time.Duration
	// MarkRead flags messages as seen as soon as they've been notified
	MarkRead bool
	Notifier notify.Notifier
	Logger   lib.Logger
}

type Watcher struct {
	mailbox      Mailbox
	idleTimeout  time.Duration
	pollInterval time.Duration
	waitInterval time.Duration
	markRead     bool
	notifier     notify.Notifier
	log          lib.Logger
	limiter      *rate.Limiter

	mu       sync.Mutex
	open     bool
	notified map[uint32]bool
}

func New(mbox Mailbox, cfg Config) (*Watcher, error) {
	if mbox == nil {
		return nil, errors.New("missing mailbox")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("missing notifier")
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Minute
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = DefaultWaitInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = &lib.NoLog{}
	}
	return &Watcher{
		mailbox:      mbox,
		idleTimeout:  cfg.IdleTimeout,
		pollInterval: cfg.PollInterval,
		waitInterval: cfg.WaitInterval,
		markRead:     cfg.MarkRead,
		notifier:     cfg.Notifier,
		log:          cfg.Logger,
		// the first connection is immediate
		limiter:  rate.NewLimiter(rate.Every(cfg.ReconnectInterval), 1),
		notified: make(map[uint32]bool),
	}, nil
}

// Run watches the mailbox until the context is cancelled.
// It only returns an error when the server rejected the credentials.
func (w *Watcher) Run(ctx context.Context) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc("@every "+w.pollInterval.String(), func() {
		w.scheduledPoll(ctx)
	})
	if err != nil {
		return fmt.Errorf("cannot schedule polling: %w", err)
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			// context cancelled
			return nil
		}
		err := w.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, lib.ErrLogin) {
			w.log.Printf("%s: %v: giving up", w.mailbox.Name(), err)
			return err
		}
		if err != nil {
			w.log.Printf("%s: %v: reconnecting", w.mailbox.Name(), err)
		}
	}
}

// watch runs one session, from opening to closing
func (w *Watcher) watch(ctx context.Context) error {
	w.log.Printf("%s: initiating connection", w.mailbox.Name())
	ok, err := w.mailbox.Open(ctx)
	if err != nil {
		return err
	}
	if !ok {
		w.mailbox.Close()
		return fmt.Errorf("%w %q", lib.ErrSelect, w.mailbox.Folder())
	}
	w.setOpen(true)
	defer func() {
		w.setOpen(false)
		w.mailbox.Close()
	}()

	// message numbers are only valid for this session
	w.mu.Lock()
	w.notified = make(map[uint32]bool)
	w.mu.Unlock()

	if err := w.poll(ctx); err != nil {
		w.log.Printf("%s: poll: %v", w.mailbox.Name(), err)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		status := w.mailbox.Status()
		if status.Closed() {
			return lib.ErrSessionClosed
		}
		if status.Failures.Has(mailbox.FailureWatch) {
			return lib.ErrWatchFailed
		}
		if !w.mailbox.SupportsIdle() {
			// only scheduled polling
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.waitInterval):
			}
			continue
		}

		event, err := w.mailbox.Idle(ctx, w.idleTimeout)
		if err != nil {
			return err
		}
		if event == "" {
			w.log.Printf("%s: idle ended, retrying...", w.mailbox.Name())
			continue
		}
		w.handle(ctx, event)
	}
}

// handle reacts to a notification pushed by the server, like "* 12 exists"
func (w *Watcher) handle(ctx context.Context, event string) {
	fields := strings.Fields(event)
	if len(fields) < 3 || fields[2] != "exists" {
		return
	}
	var num uint32
	if _, err := fmt.Sscan(fields[1], &num); err != nil || num == 0 {
		return
	}
	w.log.Printf("%s: new message", w.mailbox.Name())
	if err := w.notify(ctx, num); err != nil {
		w.log.Printf("%s: message %d: %v", w.mailbox.Name(), num, err)
	}
}

func (w *Watcher) scheduledPoll(ctx context.Context) {
	if !w.isOpen() || ctx.Err() != nil {
		return
	}
	w.log.Printf("%s: polling server...", w.mailbox.Name())
	if err := w.poll(ctx); err != nil {
		w.log.Printf("%s: poll: %v", w.mailbox.Name(), err)
	}
}

// poll notifies about every unseen message
func (w *Watcher) poll(ctx context.Context) error {
	unseen, err := w.mailbox.Poll(ctx)
	if err != nil {
		return err
	}
	for _, num := range unseen {
		if err := w.notify(ctx, num); err != nil {
			w.log.Printf("%s: message %d: %v", w.mailbox.Name(), num, err)
		}
	}
	return nil
}

// notify fetches the header of a message and shows it, only once per session
func (w *Watcher) notify(ctx context.Context, num uint32) error {
	if !w.markNotified(num) {
		return nil
	}
	message, err := w.mailbox.Fetch(ctx, num, true)
	if err != nil {
		w.unmarkNotified(num)
		return err
	}
	markRead := func() error {
		marked, err := w.mailbox.MarkRead(ctx, num)
		if err != nil {
			return err
		}
		if !marked {
			return fmt.Errorf("message %d: %w", num, lib.ErrProtocolTimeout)
		}
		return nil
	}
	notification := notify.Notification{
		Account: w.mailbox.Account().String(),
		Folder:  w.mailbox.Folder(),
		Sender:  message.Sender(),
		Subject: message.Subject(),
		Date:    message.Date(),
	}
	if !w.markRead {
		// left to the user
		notification.MarkRead = markRead
	}
	err = w.notifier.Notify(notification)
	if err != nil {
		return err
	}
	if w.markRead {
		return markRead()
	}
	return nil
}

// markNotified returns false when the message was already notified
func (w *Watcher) markNotified(num uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.notified[num] {
		return false
	}
	w.notified[num] = true
	return true
}

func (w *Watcher) unmarkNotified(num uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.notified, num)
}

func (w *Watcher) setOpen(open bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = open
}

func (w *Watcher) isOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}
