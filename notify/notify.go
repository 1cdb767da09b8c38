// Package notify shows new messages to the user
package notify

import (
	"html"
	"time"
)

const AppName = "imapnotif"

// Notification about a new message
type Notification struct {
	Account string
	Folder  string
	Sender  string
	Subject string
	Date    time.Time
	// MarkRead flags the message as seen on the server. It can be nil.
	MarkRead func() error
}

// Summary is "account: folder"
func (n Notification) Summary() string {
	return n.Account + ": " + n.Folder
}

// Body is the sender and the subject, escaped for the notification server markup
func (n Notification) Body() string {
	return html.EscapeString(n.Sender) + "\n\n" + html.EscapeString(n.Subject)
}

type Notifier interface {
	Notify(notification Notification) error
}
