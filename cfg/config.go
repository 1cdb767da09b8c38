package cfg

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/creativeprojects/imapnotif/mailbox"
	"github.com/creativeprojects/imapnotif/term"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIdleTimeout  = 10 * time.Minute
	DefaultPollInterval = 10 * time.Minute
	DefaultIcon         = "mail-unread"

	NotifierDesktop  = "desktop"
	NotifierTerminal = "terminal"
)

type Config struct {
	IdleTimeout  time.Duration      `yaml:"idleTimeout"`
	PollInterval time.Duration      `yaml:"pollInterval"`
	Notifier     string             `yaml:"notifier"`
	Icon         string             `yaml:"icon"`
	Sound        string             `yaml:"sound"`
	Expire       time.Duration      `yaml:"expire"`
	Accounts     map[string]Account `yaml:"accounts"`
}

type Account struct {
	Server              string   `yaml:"server"`
	Port                int      `yaml:"port"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	TLS                 bool     `yaml:"tls"`
	SkipTLSVerification bool     `yaml:"skipTLSVerification"`
	Mailboxes           []string `yaml:"mailboxes"`
	MarkRead            bool     `yaml:"markRead"`
}

func newConfig() *Config {
	return &Config{}
}

// LoadFromFile loads the configuration from the file
func LoadFromFile(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	return loadConfig(file)
}

// loadConfig from a io.ReadCloser
func loadConfig(reader io.ReadCloser) (*Config, error) {
	defer reader.Close()
	decoder := yaml.NewDecoder(reader)
	config := newConfig()
	err := decoder.Decode(config)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	validateConfiguration(config)
	return config, nil
}

func validateConfiguration(config *Config) {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Expire < 0 {
		config.Expire = 0
	}
	switch config.Notifier {
	case NotifierDesktop, NotifierTerminal:
	case "":
		config.Notifier = NotifierDesktop
	default:
		term.Warnf("unknown notifier %q: using %s", config.Notifier, NotifierDesktop)
		config.Notifier = NotifierDesktop
	}
	if config.Icon == "" {
		config.Icon = DefaultIcon
	}
	for name, account := range config.Accounts {
		if account.Server == "" || account.Username == "" || account.Password == "" {
			term.Warnf("account %q is missing a server, a username or a password: ignored", name)
			delete(config.Accounts, name)
			continue
		}
		if len(account.Mailboxes) == 0 {
			account.Mailboxes = []string{mailbox.DefaultFolder}
			config.Accounts[name] = account
		}
	}
}

// AccountNames returns the names of the accounts, sorted
func (c *Config) AccountNames() []string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mailbox returns the connection details of the account
func (a Account) Mailbox(name string) mailbox.Account {
	return mailbox.Account{
		Name:                name,
		Server:              a.Server,
		Port:                a.Port,
		Username:            a.Username,
		Password:            a.Password,
		TLS:                 a.TLS,
		SkipTLSVerification: a.SkipTLSVerification,
	}
}
