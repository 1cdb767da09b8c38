package lib

import "errors"

var (
	// ErrNetwork is a transport failure: dial, TLS or a hard write error
	ErrNetwork = errors.New("network error")
	// ErrLogin means the server rejected the credentials
	ErrLogin = errors.New("authentication failure")
	// ErrSelect means the folder does not exist or cannot be accessed
	ErrSelect = errors.New("cannot select mailbox")
	// ErrProtocolTimeout is returned when no matching response arrived within the budget
	ErrProtocolTimeout = errors.New("timeout waiting for server response")
	// ErrConnectionClosed is returned when the server closed the connection
	ErrConnectionClosed = errors.New("connection closed by remote host")
	// ErrSessionClosed is returned when the session is closed locally
	ErrSessionClosed = errors.New("session is closed")
	ErrState         = errors.New("invalid session state")
	ErrWatchFailed   = errors.New("mailbox watch failed")
	// ErrRejected means the server answered NO or BAD to the command
	ErrRejected     = errors.New("command rejected by server")
	ErrNotSupported = errors.New("not supported by server")
)
