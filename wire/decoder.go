package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// Decoder splits the byte stream received from the server into lines.
// A line announcing a literal ({n} at the end) continues after the n bytes of the literal.
type Decoder struct {
	buffer   []byte
	raw      strings.Builder
	literals [][]byte
	// number of literal bytes expected, -1 when not reading a literal
	expected int
}

func NewDecoder() *Decoder {
	return &Decoder{
		expected: -1,
	}
}

// Write appends bytes received from the server. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buffer = append(d.buffer, p...)
	return len(p), nil
}

// Next returns the next complete line, or false if more bytes are needed
func (d *Decoder) Next() (Line, bool) {
	for {
		if d.expected >= 0 {
			if len(d.buffer) < d.expected {
				return Line{}, false
			}
			literal := make([]byte, d.expected)
			copy(literal, d.buffer)
			d.literals = append(d.literals, literal)
			d.buffer = d.buffer[d.expected:]
			d.expected = -1
			continue
		}
		index := bytes.IndexByte(d.buffer, '\n')
		if index < 0 {
			return Line{}, false
		}
		segment := strings.TrimSuffix(string(d.buffer[:index]), "\r")
		d.buffer = d.buffer[index+1:]
		d.raw.WriteString(segment)

		if size, ok := literalSize(segment); ok {
			d.expected = size
			continue
		}

		raw := d.raw.String()
		literals := d.literals
		d.raw.Reset()
		d.literals = nil
		if strings.TrimSpace(raw) == "" && len(literals) == 0 {
			continue
		}
		line := Tokenize(raw)
		line.Literals = literals
		return line, true
	}
}

// Pending reports whether a partial line is waiting for more bytes
func (d *Decoder) Pending() bool {
	return len(d.buffer) > 0 || d.raw.Len() > 0 || d.expected >= 0
}

// Reset drops everything buffered
func (d *Decoder) Reset() {
	d.buffer = nil
	d.raw.Reset()
	d.literals = nil
	d.expected = -1
}

// literalSize detects a literal announcement at the end of a segment: {123} or {123+}
func literalSize(segment string) (int, bool) {
	if !strings.HasSuffix(segment, "}") {
		return 0, false
	}
	start := strings.LastIndexByte(segment, '{')
	if start < 0 {
		return 0, false
	}
	number := strings.TrimSuffix(segment[start+1:len(segment)-1], "+")
	size, err := strconv.Atoi(number)
	if err != nil || size < 0 {
		return 0, false
	}
	return size, true
}
