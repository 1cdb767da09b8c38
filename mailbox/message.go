package mailbox

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

type Message struct {
	// The message sequence number.
	SeqNum uint32
	// HeaderOnly is true when only From, Date and Subject were downloaded.
	HeaderOnly bool
	// The parsed message header.
	Header mail.Header
	// The message as sent by the server (header only or full RFC 822 content).
	Raw []byte
}

// ParseMessage reads the header of a raw message downloaded from the server
func ParseMessage(seqNum uint32, raw []byte, headerOnly bool) (*Message, error) {
	header, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("cannot parse message %d header: %w", seqNum, err)
	}
	return &Message{
		SeqNum:     seqNum,
		HeaderOnly: headerOnly,
		Header:     mail.Header{Header: message.Header{Header: header}},
		Raw:        raw,
	}, nil
}

func (m *Message) Subject() string {
	subject, err := m.Header.Subject()
	if err != nil {
		return m.Header.Get("Subject")
	}
	return subject
}

func (m *Message) Date() time.Time {
	date, _ := m.Header.Date()
	return date
}

// Sender returns the display name of the first address in the From field,
// or the address itself when there's no display name
func (m *Message) Sender() string {
	addresses, err := m.Header.AddressList("From")
	if err == nil && len(addresses) > 0 {
		if addresses[0].Name != "" {
			return addresses[0].Name
		}
		return addresses[0].Address
	}
	// unparsable: keep what's in front of the address
	from := m.Header.Get("From")
	if index := strings.Index(from, "<"); index > 0 {
		from = from[:index]
	}
	return strings.TrimSpace(strings.ReplaceAll(from, "\"", ""))
}
