// Package verify models the email-verification gate that controls
// write access to the guestbook.
package verify

import "errors"

// State is the verification status derived from a session. It is
// recomputed on every evaluation, never persisted by this package.
type State string

const (
	StateUnverified State = "unverified"
	StatePending    State = "verification-pending"
	StateVerified   State = "verified"
)

// Event is a trigger that may move the gate between states.
type Event string

const (
	EventSessionEstablished Event = "session-established"
	EventCodeRequested      Event = "code-requested"
	EventCodeAccepted       Event = "code-accepted"
	EventCodeRejected       Event = "code-rejected"
)

var (
	ErrAlreadyVerified   = errors.New("identity already verified")
	ErrInvalidTransition = errors.New("invalid verification transition")
)

// FromFlag derives the gate state from an identity's verification flag.
// An established session over an unverified identity is always presented
// as awaiting verification.
func FromFlag(emailVerified bool) State {
	if emailVerified {
		return StateVerified
	}
	return StatePending
}

// CanPost reports whether a session in the given state may create
// messages. Only verified sessions may write.
func CanPost(s State) bool {
	return s == StateVerified
}

// Next applies an event to a state. Verified is terminal: no event moves
// a session out of it, and requesting a code once verified is an error.
// A rejected code leaves the state unchanged; the caller surfaces the
// failure separately.
func Next(s State, e Event) (State, error) {
	switch s {
	case StateUnverified:
		switch e {
		case EventSessionEstablished, EventCodeRequested:
			return StatePending, nil
		}
	case StatePending:
		switch e {
		case EventSessionEstablished, EventCodeRequested, EventCodeRejected:
			return StatePending, nil
		case EventCodeAccepted:
			return StateVerified, nil
		}
	case StateVerified:
		switch e {
		case EventCodeRequested:
			return StateVerified, ErrAlreadyVerified
		case EventSessionEstablished, EventCodeAccepted:
			return StateVerified, nil
		}
	}
	return s, ErrInvalidTransition
}
