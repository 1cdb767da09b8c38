package mailbox

import (
	"net"
	"strconv"
)

const (
	DefaultFolder  = "INBOX"
	DefaultPort    = 143
	DefaultTLSPort = 993
)

// Account holds the connection credentials of a mail server.
// It is created once from the configuration and never modified afterwards.
type Account struct {
	// Name given in the configuration file
	Name     string
	Server   string
	Port     int
	Username string
	Password string
	// TLS starts the connection in TLS. When false the connection
	// is upgraded with STARTTLS if the server advertises it.
	TLS                 bool
	SkipTLSVerification bool
}

// Address returns host:port, using the default IMAP ports when none is set
func (a Account) Address() string {
	port := a.Port
	if port == 0 {
		port = DefaultPort
		if a.TLS {
			port = DefaultTLSPort
		}
	}
	return net.JoinHostPort(a.Server, strconv.Itoa(port))
}

func (a Account) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Username + "@" + a.Server
}
