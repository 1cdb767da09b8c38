package cmd

import (
	"os"

	"github.com/creativeprojects/imapnotif/term"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "imapnotif",
	Short:         "Desktop notifications of new messages on IMAP servers",
	Long:          "\nDesktop notifications of new messages on IMAP servers,\nusing IMAP IDLE when the server supports it",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initLog)
	flag := rootCmd.PersistentFlags()
	flag.StringVarP(&global.configFile, "config", "c", "imapnotif.yaml", "configuration file")
	flag.BoolVarP(&global.quiet, "quiet", "q", false, "only display warnings and errors")
	flag.BoolVarP(&global.verbose, "verbose", "v", false, "display debugging information")
}

func initLog() {
	switch {
	case global.verbose:
		term.SetLevel(term.LevelDebug)
	case global.quiet:
		term.SetLevel(term.LevelWarn)
	}
}

func Execute(version, commit, date, builtBy string) {
	setApp(version, commit, date, builtBy)
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		term.Error(err)
		os.Exit(1)
	}
}
