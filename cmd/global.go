package cmd

import (
	"errors"
	"log"

	"github.com/creativeprojects/imapnotif/cfg"
	"github.com/creativeprojects/imapnotif/lib"
)

type GlobalFlags struct {
	configFile string
	quiet      bool
	verbose    bool
}

var (
	global GlobalFlags
	config *cfg.Config
)

func loadConfig() error {
	var err error
	config, err = cfg.LoadFromFile(global.configFile)
	if err != nil {
		return errors.New("cannot open or read configuration file: " + err.Error())
	}
	return nil
}

// debugLogger sends the protocol traces to the standard logger in verbose mode
func debugLogger() lib.Logger {
	if global.verbose {
		return log.Default()
	}
	return &lib.NoLog{}
}
