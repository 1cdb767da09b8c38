package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creativeprojects/imapnotif/cfg"
	"github.com/creativeprojects/imapnotif/notify"
	"github.com/creativeprojects/imapnotif/term"
	"github.com/creativeprojects/imapnotif/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout is the time given to the sessions to log out before the connections are cut
const shutdownTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch [account...]",
	Short: "Watch the mailboxes and show a notification for each new message",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	targets, err := newTargets(config, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		term.Info("shutting down...")
		time.AfterFunc(shutdownTimeout, func() {
			for _, target := range targets {
				target.session.Abort()
			}
		})
	}()

	notifier := newNotifier(config)
	group := new(errgroup.Group)
	for _, target := range targets {
		target := target
		w, err := watcher.New(target.session, watcher.Config{
			IdleTimeout:  config.IdleTimeout,
			PollInterval: config.PollInterval,
			MarkRead:     target.markRead,
			Notifier:     notifier,
			Logger:       debugLogger(),
		})
		if err != nil {
			return err
		}
		term.Infof("watching %s", target.session.Name())
		group.Go(func() error {
			err := w.Run(ctx)
			if err != nil {
				term.Errorf("%s: %v", target.session.Name(), err)
			}
			return err
		})
	}
	return group.Wait()
}

func newNotifier(config *cfg.Config) notify.Notifier {
	if config.Notifier == cfg.NotifierTerminal {
		return notify.NewTerminal(os.Stdout)
	}
	return notify.NewDesktop(config.Icon, config.Sound, config.Expire, debugLogger())
}
