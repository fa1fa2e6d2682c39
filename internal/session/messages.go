package session

import "github.com/park285/cheese-relay/pkg/chessproto"

// Msg is anything the session loop accepts on its inbox.
type Msg interface{ isSessionMsg() }

// Join registers a connection. The session writes every event for it to Outbox
// and closes Outbox when the connection is dropped or the session shuts down.
type Join struct {
	ConnID string
	Outbox chan chessproto.Envelope
}

func (Join) isSessionMsg() {}

// Leave unregisters a connection and frees its seat.
type Leave struct{ ConnID string }

func (Leave) isSessionMsg() {}

// Move submits a move on behalf of ConnID. Malformed marks a payload that could not be decoded.
type Move struct {
	ConnID    string
	Req       chessproto.MoveRequest
	Malformed bool
}

func (Move) isSessionMsg() {}

// Restart resets the game to the starting position.
type Restart struct{ ConnID string }

func (Restart) isSessionMsg() {}

// GetSnapshot asks the loop for a read-only view.
type GetSnapshot struct {
	Reply chan chessproto.StateSnapshot
}

func (GetSnapshot) isSessionMsg() {}

// Shutdown stops the loop and closes every outbox.
type Shutdown struct{}

func (Shutdown) isSessionMsg() {}
