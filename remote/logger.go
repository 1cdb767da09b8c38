package remote

import (
	"github.com/creativeprojects/imapnotif/wire"
)

// traceSent logs a command line, without the credentials
func (s *Session) traceSent(command string) {
	s.log.Printf("%s C: %s", s.name, wire.Redact(command))
}

func (s *Session) traceReceived(line wire.Line) {
	if len(line.Literals) == 0 {
		s.log.Printf("%s S: %s", s.name, line.Raw)
		return
	}
	size := 0
	for _, literal := range line.Literals {
		size += len(literal)
	}
	s.log.Printf("%s S: %s (%d bytes of literal)", s.name, line.Raw, size)
}
