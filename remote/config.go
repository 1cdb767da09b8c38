package remote

import (
	"time"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/mailbox"
)

const (
	DefaultTick           = time.Second
	DefaultCommandTimeout = 10 * time.Second
	DefaultLockTimeout    = 30 * time.Second
	DefaultDialTimeout    = 30 * time.Second
	DefaultIdleTimeout    = 10 * time.Minute
)

type Config struct {
	Account mailbox.Account
	// Folder to select, INBOX when empty
	Folder string
	// Tick is the polling unit of every socket read
	Tick time.Duration
	// CommandTimeout is the time to wait for the completion of a command
	CommandTimeout time.Duration
	// LockTimeout is the time after which a waiter for the connection gives up with ticket.ErrStalled
	LockTimeout time.Duration
	DialTimeout time.Duration
	// DebugLogger receives the protocol trace
	DebugLogger lib.Logger
}

func (c Config) withDefaults() Config {
	if c.Folder == "" {
		c.Folder = mailbox.DefaultFolder
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.DebugLogger == nil {
		c.DebugLogger = &lib.NoLog{}
	}
	return c
}
