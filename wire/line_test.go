package wire

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	fixtures := []struct {
		raw     string
		tag     string
		rest    string
		keyword string
		status  imap.StatusRespType
	}{
		{"* 3 EXISTS", "*", "3 exists", "exists", ""},
		{"+ idling", "+", "idling", "idling", ""},
		{"+", "+", "", "", ""},
		{"A0004 OK IDLE terminated", "a0004", "ok idle terminated", "ok", imap.StatusRespOk},
		{"a5 NO [NONEXISTENT] Unknown Mailbox", "a5", "no [nonexistent] unknown mailbox", "no", imap.StatusRespNo},
		{"* BYE Logging out\r\n", "*", "bye logging out", "bye", imap.StatusRespBye},
		{"* SEARCH 2 84 882", "*", "search 2 84 882", "search", ""},
		{"  * OK  ready", "*", "ok  ready", "ok", imap.StatusRespOk},
	}

	for _, fixture := range fixtures {
		t.Run(fixture.raw, func(t *testing.T) {
			line := Tokenize(fixture.raw)
			assert.Equal(t, fixture.tag, line.Tag)
			assert.Equal(t, fixture.rest, line.Rest)
			assert.Equal(t, fixture.keyword, line.Keyword())
			assert.Equal(t, fixture.status, line.Status())
		})
	}
}

func TestLineText(t *testing.T) {
	line := Tokenize("* 3 EXISTS")
	assert.Equal(t, "* 3 exists", line.Text())
	assert.True(t, line.Contains("EXISTS"))
	assert.True(t, line.Untagged())
	assert.False(t, line.Contains("expunge"))

	num, ok := line.Number()
	require.True(t, ok)
	assert.Equal(t, uint32(3), num)

	_, ok = Tokenize("* OK still here").Number()
	assert.False(t, ok)
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "A0001 IDLE", Idle("A0001"))
	assert.Equal(t, "A0002 NOOP", Noop("A0002"))
	assert.Equal(t, `A0003 STORE 12 +FLAGS \Seen`, Store("A0003", 12))
	assert.Equal(t, "A0004 FETCH 7 (RFC822)", Fetch("A0004", 7, false))
	assert.Equal(t, "A0005 FETCH 7 (BODY.PEEK[HEADER.FIELDS (FROM DATE SUBJECT)])", Fetch("A0005", 7, true))
	assert.Equal(t, "A0006 SEARCH UNSEEN", SearchUnseen("A0006"))
	assert.Equal(t, `A0007 SELECT "INBOX"`, Select("A0007", "INBOX"))
	assert.Equal(t, `A0008 LOGIN "me@example.com" "p\"a\\ss"`, Login("A0008", "me@example.com", `p"a\ss`))
	assert.Equal(t, "A0008 LOGIN [redacted]", Redact(Login("A0008", "me@example.com", "secret")))
	assert.Equal(t, "A0009 NOOP", Redact(Noop("A0009")))
	assert.Equal(t, "DONE", Done)
}

func TestTagger(t *testing.T) {
	tagger := NewTagger("N")
	assert.Equal(t, "N0001", tagger.Next())
	assert.Equal(t, "N0002", tagger.Next())

	other := NewTagger("N")
	assert.Equal(t, "N0001", other.Next())
}
