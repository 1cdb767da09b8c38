package cmd

import (
	"fmt"

	"github.com/creativeprojects/imapnotif/cfg"
	"github.com/creativeprojects/imapnotif/remote"
	"github.com/creativeprojects/imapnotif/watcher"
)

// target is one folder of an account
type target struct {
	session  *remote.Session
	markRead bool
}

// newTargets opens no connection: it prepares a session for every folder of the accounts.
// All the accounts are used when no name is given.
func newTargets(config *cfg.Config, names []string) ([]target, error) {
	if len(names) == 0 {
		names = config.AccountNames()
	}
	targets := make([]target, 0, len(names))
	for _, name := range names {
		account, ok := config.Accounts[name]
		if !ok {
			return nil, fmt.Errorf("account not found: %s", name)
		}
		for _, folder := range account.Mailboxes {
			session, err := remote.NewSession(remote.Config{
				Account:     account.Mailbox(name),
				Folder:      folder,
				DebugLogger: debugLogger(),
			})
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", name, err)
			}
			targets = append(targets, target{
				session:  session,
				markRead: account.MarkRead,
			})
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no mailbox found in configuration file %q", global.configFile)
	}
	return targets, nil
}

// verify interface
var _ watcher.Mailbox = &remote.Session{}
