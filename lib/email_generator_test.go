package lib

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateEmail(t *testing.T) {
	for i := 0; i < 1000; i++ {
		msg := GenerateEmail("a@example.com", "b@example.com", "hello", uint32(i), 2000)
		assert.True(t, bytes.HasPrefix(msg, []byte("From: a@example.com\r\n")))
		assert.Contains(t, string(msg), "Subject: hello\r\n")
		assert.Contains(t, string(msg), "\r\n\r\n")
	}
}

func TestGenerateHeader(t *testing.T) {
	header := GenerateHeader("Bob <bob@example.com>", "lunch?")
	assert.True(t, bytes.HasSuffix(header, []byte("\r\n\r\n")))
	assert.Contains(t, string(header), "Subject: lunch?\r\n")
}
