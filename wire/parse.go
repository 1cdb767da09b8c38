package wire

import (
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
)

// Capabilities collects the capabilities announced in CAPABILITY responses and
// in [CAPABILITY ...] response codes. Names are lower-cased.
func Capabilities(lines []Line) map[string]bool {
	caps := make(map[string]bool)
	for _, line := range lines {
		var list string
		switch {
		case line.Keyword() == "capability":
			list = strings.TrimPrefix(line.Rest, "capability")
		case strings.Contains(line.Rest, "[capability "):
			list = line.Rest[strings.Index(line.Rest, "[capability ")+len("[capability "):]
			list, _, _ = strings.Cut(list, "]")
		default:
			continue
		}
		for _, name := range strings.Fields(list) {
			caps[name] = true
		}
	}
	return caps
}

// SearchResults returns the message numbers of the "* search" responses, in order
func SearchResults(lines []Line) ([]uint32, error) {
	nums := make([]uint32, 0)
	for _, line := range lines {
		if line.Keyword() != "search" {
			continue
		}
		for _, field := range strings.Fields(line.Rest)[1:] {
			num, err := imap.ParseNumber(field)
			if err != nil {
				return nil, fmt.Errorf("invalid search response %q: %w", line.Raw, err)
			}
			nums = append(nums, num)
		}
	}
	return nums, nil
}

// Exists returns the number of messages announced by a "* n exists" response
func Exists(line Line) (uint32, bool) {
	if !line.Untagged() || line.Keyword() != "exists" {
		return 0, false
	}
	return line.Number()
}

// FetchLiteral finds the message content in the "* n fetch" responses of message num
func FetchLiteral(lines []Line, num uint32) ([]byte, bool) {
	for _, line := range lines {
		if line.Keyword() != "fetch" {
			continue
		}
		if seq, ok := line.Number(); !ok || seq != num {
			continue
		}
		if literal := line.Literal(); literal != nil {
			return literal, true
		}
		if content, ok := quotedContent(line.Raw); ok {
			return []byte(content), true
		}
	}
	return nil, false
}

// quotedContent extracts a body section sent as a quoted string instead of a literal,
// like BODY[HEADER.FIELDS (FROM)] "From: a@b\r\n\r\n"
func quotedContent(raw string) (string, bool) {
	start := strings.Index(raw, "] \"")
	if start < 0 {
		return "", false
	}
	content := raw[start+3:]
	end := strings.LastIndex(content, "\"")
	if end < 0 {
		return "", false
	}
	content = content[:end]
	content = strings.ReplaceAll(content, `\"`, `"`)
	content = strings.ReplaceAll(content, `\\`, `\`)
	return content, true
}
