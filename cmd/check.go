package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/creativeprojects/imapnotif/lib"
	"github.com/creativeprojects/imapnotif/remote"
	"github.com/creativeprojects/imapnotif/term"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [account...]",
	Short: "Display the unseen messages of the mailboxes",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	targets, err := newTargets(config, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Account", "Mailbox", "#", "From", "Subject", "Date"},
	})
	progress := newProgresser(len(targets))
	for _, target := range targets {
		progress.Title(target.session.Name())
		rows, err := checkMailbox(ctx, target.session)
		progress.Increment()
		if err != nil {
			term.Warnf("%s: %v", target.session.Name(), err)
			continue
		}
		table.Data = append(table.Data, rows...)
	}
	progress.Stop()

	if len(table.Data) == 1 {
		term.Info("no unseen message")
		return nil
	}
	return table.Render()
}

// checkMailbox returns one row per unseen message
func checkMailbox(ctx context.Context, session *remote.Session) ([][]string, error) {
	ok, err := session.Open(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		session.Close()
		return nil, fmt.Errorf("%w %q", lib.ErrSelect, session.Folder())
	}
	defer session.Close()

	unseen, err := session.Poll(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot search unseen messages: %w", err)
	}
	rows := make([][]string, 0, len(unseen))
	for _, num := range unseen {
		message, err := session.Fetch(ctx, num, true)
		if err != nil {
			term.Warnf("%s: message %d: %v", session.Name(), num, err)
			continue
		}
		date := ""
		if !message.Date().IsZero() {
			date = message.Date().Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			session.Account().String(),
			session.Folder(),
			strconv.FormatUint(uint64(num), 10),
			message.Sender(),
			message.Subject(),
			date,
		})
	}
	return rows, nil
}
