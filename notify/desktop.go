package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/TheCreeper/go-notify"
	"github.com/creativeprojects/imapnotif/lib"
)

const (
	ActionMarkRead = "mark-read"
	labelMarkRead  = "Mark read"
)

// Desktop sends notifications to the desktop notification server over D-Bus.
// Notifications of a message that can be marked as read get a "Mark read" action.
type Desktop struct {
	icon   string
	sound  string
	expire time.Duration
	log    lib.Logger
	show   func(notification notify.Notification) (uint32, error)
	listen func() (<-chan action, error)

	once      sync.Once
	listening bool
	mu        sync.Mutex
	markRead  map[uint32]func() error
}

// NewDesktop creates a desktop notifier. A zero expire keeps the notification until dismissed.
func NewDesktop(icon, sound string, expire time.Duration, logger lib.Logger) *Desktop {
	if logger == nil {
		logger = &lib.NoLog{}
	}
	return &Desktop{
		icon:   icon,
		sound:  sound,
		expire: expire,
		log:    logger,
		show: func(notification notify.Notification) (uint32, error) {
			return notification.Show()
		},
		listen:   listenActions,
		markRead: make(map[uint32]func() error),
	}
}

func (d *Desktop) Notify(n Notification) error {
	withAction := n.MarkRead != nil && d.startListening()
	notification := d.build(n, withAction)
	id, err := d.show(notification)
	if err != nil {
		return fmt.Errorf("cannot show notification: %w", err)
	}
	if withAction {
		d.mu.Lock()
		d.markRead[id] = n.MarkRead
		d.mu.Unlock()
	}
	return nil
}

func (d *Desktop) build(n Notification, withAction bool) notify.Notification {
	notification := notify.NewNotification(n.Summary(), n.Body())
	notification.AppName = AppName
	notification.AppIcon = d.icon
	if d.expire > 0 {
		notification.Timeout = int32(d.expire / time.Millisecond)
	} else {
		notification.Timeout = notify.ExpiresNever
	}
	notification.Hints = make(map[string]interface{})
	if d.sound != "" {
		notification.Hints[notify.HintSoundFile] = d.sound
	}
	if withAction {
		notification.Actions = []string{ActionMarkRead, labelMarkRead}
	}
	return notification
}

// startListening returns false when the actions of the notifications can't be received
func (d *Desktop) startListening() bool {
	d.once.Do(func() {
		actions, err := d.listen()
		if err != nil {
			d.log.Printf("notification actions disabled: %v", err)
			return
		}
		d.listening = true
		go d.dispatch(actions)
	})
	return d.listening
}

// dispatch runs the callback of a "Mark read" click, and forgets the notifications being closed
func (d *Desktop) dispatch(actions <-chan action) {
	for received := range actions {
		if received.key != "" && received.key != ActionMarkRead {
			continue
		}
		d.mu.Lock()
		markRead, found := d.markRead[received.id]
		delete(d.markRead, received.id)
		d.mu.Unlock()
		if !found || received.key == "" {
			continue
		}
		if err := markRead(); err != nil {
			d.log.Printf("cannot mark message as read: %v", err)
		}
	}
}

var _ Notifier = &Desktop{}
