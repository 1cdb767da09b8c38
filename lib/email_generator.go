package lib

import (
	"fmt"
	"math/rand"
	"time"
)

const charset = "abcdefghijklmnopqrstuvwxyz " +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 " +
	",./;'\\ \" []{}<>?:|!@$%^&*()_+-= " +
	"\r\n\r\n\r\n "

const template = "From: %s\r\n" +
	"To: %s\r\n" +
	"Subject: %s\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Message-ID: <%d@localhost/>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n%s"

var seededRand *rand.Rand = rand.New(
	rand.NewSource(time.Now().UnixMilli()))

func stringWithCharset(length int, charset string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}

// GenerateEmail returns a RFC 5322 message with a random body of up to maxBody bytes
func GenerateEmail(from, to, subject string, id uint32, maxBody int) []byte {
	length := 1
	if maxBody > 1 {
		length += seededRand.Intn(maxBody - 1)
	}
	msg := fmt.Sprintf(template, from, to, subject, id, stringWithCharset(length, charset))
	return []byte(msg)
}

// GenerateHeader returns only the From, Date and Subject fields, as a server
// answers a BODY.PEEK[HEADER.FIELDS (FROM DATE SUBJECT)] request
func GenerateHeader(from, subject string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\nDate: Wed, 11 May 2016 14:31:59 +0000\r\nSubject: %s\r\n\r\n", from, subject))
}
