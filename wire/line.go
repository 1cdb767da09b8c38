package wire

import (
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
)

const (
	// TagUntagged is the tag of server data and unsolicited responses
	TagUntagged = "*"
	// TagContinuation is the tag of a command continuation request
	TagContinuation = "+"
)

// Line is one response from the server. Tag and Rest are lower-cased so callers
// can match keywords without caring about the case used by the server.
type Line struct {
	// Tag is the first token of the line
	Tag string
	// Rest is what follows the tag
	Rest string
	// Raw is the line as received, without the literals and the line endings
	Raw string
	// Literals holds the content of {n} literals, untouched
	Literals [][]byte
}

// Tokenize splits a raw line into its tag and the rest of the line
func Tokenize(raw string) Line {
	raw = strings.TrimRight(raw, "\r\n")
	text := strings.ToLower(strings.TrimSpace(raw))
	tag, rest, _ := strings.Cut(text, " ")
	return Line{
		Tag:  tag,
		Rest: strings.TrimLeft(rest, " "),
		Raw:  raw,
	}
}

// Text is the lower-cased line
func (l Line) Text() string {
	if l.Rest == "" {
		return l.Tag
	}
	return l.Tag + " " + l.Rest
}

func (l Line) String() string {
	return l.Text()
}

// Contains reports whether the lower-cased line contains what (case insensitive)
func (l Line) Contains(what string) bool {
	return strings.Contains(l.Text(), strings.ToLower(what))
}

func (l Line) Untagged() bool {
	return l.Tag == TagUntagged
}

// Status returns the response condition of a status line (OK, NO, BAD, BYE or PREAUTH)
func (l Line) Status() imap.StatusRespType {
	word, _, _ := strings.Cut(l.Rest, " ")
	switch respType := imap.StatusRespType(strings.ToUpper(word)); respType {
	case imap.StatusRespOk, imap.StatusRespNo, imap.StatusRespBad, imap.StatusRespBye, imap.StatusRespPreauth:
		return respType
	}
	return ""
}

func (l Line) OK() bool {
	return l.Status() == imap.StatusRespOk
}

// Keyword returns the name of the data carried by an untagged response,
// skipping the message number: "* 3 exists" is "exists", "* search 1 2" is "search"
func (l Line) Keyword() string {
	fields := strings.Fields(l.Rest)
	if len(fields) == 0 {
		return ""
	}
	if _, err := strconv.ParseUint(fields[0], 10, 32); err == nil {
		if len(fields) > 1 {
			return fields[1]
		}
		return ""
	}
	return fields[0]
}

// Number returns the message number in front of an untagged response like "* 3 exists"
func (l Line) Number() (uint32, bool) {
	word, _, _ := strings.Cut(l.Rest, " ")
	num, err := imap.ParseNumber(word)
	if err != nil {
		return 0, false
	}
	return num, true
}

// Literal returns the first literal of the line, or nil
func (l Line) Literal() []byte {
	if len(l.Literals) == 0 {
		return nil
	}
	return l.Literals[0]
}
