package mailbox

import "strings"

// State of the connection of a mailbox session
type State int

const (
	StateClosed State = iota
	StateOpen
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateWatching:
		return "watching"
	default:
		return "unknown"
	}
}

// Failure is a set of sticky error conditions, cleared when the session is opened again
type Failure uint8

const (
	FailureNetwork Failure = 1 << iota
	FailureLogin
	FailureSelect
	FailureWatch
)

func (f Failure) Has(flag Failure) bool {
	return f&flag != 0
}

func (f Failure) String() string {
	if f == 0 {
		return "none"
	}
	names := make([]string, 0, 4)
	for _, item := range []struct {
		flag Failure
		name string
	}{
		{FailureNetwork, "network"},
		{FailureLogin, "login"},
		{FailureSelect, "select"},
		{FailureWatch, "watch"},
	} {
		if f.Has(item.flag) {
			names = append(names, item.name)
		}
	}
	return strings.Join(names, ",")
}

type Status struct {
	State    State
	Failures Failure
}

func (s Status) Closed() bool {
	return s.State == StateClosed
}

func (s Status) Watching() bool {
	return s.State == StateWatching
}
