package cmd

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/creativeprojects/imapnotif/cfg"
	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/notify"
	"github.com/creativeprojects/imapnotif/remote"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func startMemoryServer(t *testing.T) cfg.Account {
	t.Helper()
	be := memory.New()

	server := server.New(be)
	server.AllowInsecureAuth = true

	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = server.Serve(listener)
	}()

	t.Cleanup(func() {
		err := server.Close()
		assert.NoError(t, err)
		wg.Wait()
	})

	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)
	return cfg.Account{
		Server:    host,
		Port:      portNum,
		Username:  "username",
		Password:  "password",
		Mailboxes: []string{"INBOX"},
	}
}

// appendMessage adds an unseen message to the INBOX of the memory server
func appendMessage(t *testing.T, account cfg.Account, subject string) {
	t.Helper()
	imapClient, err := client.Dial(net.JoinHostPort(account.Server, strconv.Itoa(account.Port)))
	require.NoError(t, err)
	defer imapClient.Logout()

	require.NoError(t, imapClient.Login(account.Username, account.Password))
	buffer := bytes.NewBuffer(lib.GenerateEmail("jane@example.com", "me@example.com", subject, 2, 200))
	require.NoError(t, imapClient.Append("INBOX", nil, time.Now(), buffer))
}

func TestNewTargets(t *testing.T) {
	config := &cfg.Config{
		Accounts: map[string]cfg.Account{
			"work": {Server: "imap.example.com", Username: "me", Password: "secret", Mailboxes: []string{"INBOX", "Alerts"}, MarkRead: true},
			"home": {Server: "imap.example.org", Username: "me", Password: "secret", Mailboxes: []string{"INBOX"}},
		},
	}

	targets, err := newTargets(config, nil)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "home/INBOX", targets[0].session.Name())
	assert.Equal(t, "work/INBOX", targets[1].session.Name())
	assert.Equal(t, "work/Alerts", targets[2].session.Name())
	assert.False(t, targets[0].markRead)
	assert.True(t, targets[2].markRead)

	targets, err = newTargets(config, []string{"work"})
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	_, err = newTargets(config, []string{"unknown"})
	assert.Error(t, err)

	_, err = newTargets(&cfg.Config{}, nil)
	assert.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	assert.IsType(t, &notify.Terminal{}, newNotifier(&cfg.Config{Notifier: cfg.NotifierTerminal}))
	assert.IsType(t, &notify.Desktop{}, newNotifier(&cfg.Config{Notifier: cfg.NotifierDesktop}))
}

func TestCheckMailbox(t *testing.T) {
	account := startMemoryServer(t)
	appendMessage(t, account, "Lunch?")

	session, err := remote.NewSession(remote.Config{
		Account:     account.Mailbox("memory"),
		Folder:      "INBOX",
		Tick:        10 * time.Millisecond,
		DebugLogger: lib.NewTestLogger(t, "client"),
	})
	require.NoError(t, err)

	rows, err := checkMailbox(context.Background(), session)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	found := false
	for _, row := range rows {
		require.Len(t, row, 6)
		assert.Equal(t, "INBOX", row[1])
		if row[4] == "Lunch?" {
			found = true
			assert.Equal(t, "jane@example.com", row[3])
		}
	}
	assert.True(t, found)
	assert.True(t, session.Status().Closed())
}

func TestCheckUnknownMailbox(t *testing.T) {
	account := startMemoryServer(t)

	session, err := remote.NewSession(remote.Config{
		Account:     account.Mailbox("memory"),
		Folder:      "Archives",
		Tick:        10 * time.Millisecond,
		DebugLogger: lib.NewTestLogger(t, "client"),
	})
	require.NoError(t, err)

	_, err = checkMailbox(context.Background(), session)
	assert.ErrorIs(t, err, lib.ErrSelect)
}
