package notify

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

// Terminal prints notifications on the console
type Terminal struct {
	writer io.Writer
}

func NewTerminal(writer io.Writer) *Terminal {
	if writer == nil {
		writer = os.Stdout
	}
	return &Terminal{
		writer: writer,
	}
}

func (t *Terminal) Notify(n Notification) error {
	date := ""
	if !n.Date.IsZero() {
		date = n.Date.Local().Format("2006-01-02 15:04") + " "
	}
	pterm.Fprintln(t.writer,
		pterm.FgLightGreen.Sprint(n.Summary()),
		date+pterm.Bold.Sprint(n.Sender)+":",
		n.Subject,
	)
	return nil
}

var _ Notifier = &Terminal{}
