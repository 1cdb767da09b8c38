package cfg

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	source := `
idleTimeout: 5m
pollInterval: 1h
notifier: terminal
sound: /usr/share/sounds/message.oga
expire: 10s
accounts:
  work:
    server: imap.example.com
    username: me@example.com
    password: secret
    tls: true
    mailboxes: [INBOX, Lists]
    markRead: true
  home:
    server: mail.example.org
    port: 1143
    username: me
    password: secret
`
	config, err := loadConfig(io.NopCloser(strings.NewReader(source)))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, config.IdleTimeout)
	assert.Equal(t, time.Hour, config.PollInterval)
	assert.Equal(t, NotifierTerminal, config.Notifier)
	assert.Equal(t, DefaultIcon, config.Icon)
	assert.Equal(t, 10*time.Second, config.Expire)
	assert.Equal(t, []string{"home", "work"}, config.AccountNames())

	work := config.Accounts["work"]
	assert.Equal(t, []string{"INBOX", "Lists"}, work.Mailboxes)
	assert.True(t, work.MarkRead)
	assert.Equal(t, "imap.example.com:993", work.Mailbox("work").Address())

	home := config.Accounts["home"]
	assert.Equal(t, []string{mailbox.DefaultFolder}, home.Mailboxes)
	assert.Equal(t, "mail.example.org:1143", home.Mailbox("home").Address())
	assert.Equal(t, "home", home.Mailbox("home").String())
}

func TestDefaultValues(t *testing.T) {
	source := `
notifier: smoke-signals
pollInterval: -1s
accounts:
  incomplete:
    server: imap.example.com
    username: me
`
	config, err := loadConfig(io.NopCloser(strings.NewReader(source)))
	require.NoError(t, err)

	assert.Equal(t, DefaultIdleTimeout, config.IdleTimeout)
	assert.Equal(t, DefaultPollInterval, config.PollInterval)
	assert.Equal(t, NotifierDesktop, config.Notifier)
	assert.Empty(t, config.Accounts)
}

func TestEmptyConfig(t *testing.T) {
	config, err := loadConfig(io.NopCloser(strings.NewReader("")))
	require.NoError(t, err)
	assert.Equal(t, DefaultIdleTimeout, config.IdleTimeout)
	assert.Empty(t, config.AccountNames())
}

func TestInvalidConfig(t *testing.T) {
	_, err := loadConfig(io.NopCloser(strings.NewReader("accounts: [")))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "imapnotif.yaml")
	err := os.WriteFile(fileName, []byte("accounts:\n  test:\n    server: localhost\n    username: user\n    password: pass\n"), 0o600)
	require.NoError(t, err)

	config, err := LoadFromFile(fileName)
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, config.AccountNames())

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
