package wire

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/emersion/go-imap"
)

const (
	CRLF = "\r\n"
	// Done ends an IDLE command. It's the only line sent without a tag.
	Done = "DONE"

	HeaderFields = "(BODY.PEEK[HEADER.FIELDS (FROM DATE SUBJECT)])"
	FullMessage  = "(RFC822)"
)

// Tagger generates unique command tags for a session
type Tagger struct {
	prefix  string
	counter atomic.Uint32
}

func NewTagger(prefix string) *Tagger {
	return &Tagger{prefix: prefix}
}

func (t *Tagger) Next() string {
	return fmt.Sprintf("%s%04d", t.prefix, t.counter.Add(1))
}

func Capability(tag string) string {
	return tag + " CAPABILITY"
}

func StartTLS(tag string) string {
	return tag + " STARTTLS"
}

func Login(tag, username, password string) string {
	return tag + " LOGIN " + Quote(username) + " " + Quote(password)
}

func Select(tag, folder string) string {
	return tag + " SELECT " + Quote(folder)
}

func Idle(tag string) string {
	return tag + " IDLE"
}

func Noop(tag string) string {
	return tag + " NOOP"
}

func Logout(tag string) string {
	return tag + " LOGOUT"
}

func SearchUnseen(tag string) string {
	return tag + " SEARCH UNSEEN"
}

func Fetch(tag string, num uint32, headerOnly bool) string {
	items := FullMessage
	if headerOnly {
		items = HeaderFields
	}
	return tag + " FETCH " + seqSet(num) + " " + items
}

// Store adds the \Seen flag to the message
func Store(tag string, num uint32) string {
	return tag + " STORE " + seqSet(num) + " +FLAGS " + imap.SeenFlag
}

func seqSet(num uint32) string {
	set := new(imap.SeqSet)
	set.AddNum(num)
	return set.String()
}

// Quote returns s as an IMAP quoted string
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Redact hides the credentials of a LOGIN command, for logging
func Redact(command string) string {
	fields := strings.SplitN(command, " ", 3)
	if len(fields) == 3 && strings.EqualFold(fields[1], "LOGIN") {
		return fields[0] + " LOGIN [redacted]"
	}
	return command
}
