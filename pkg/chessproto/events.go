package chessproto

import "encoding/json"

// Server → client event names.
const (
	EventPlayerRole    = "playerRole"
	EventSpectatorRole = "spectatorRole"
	EventWaiting       = "waiting"
	EventConnected     = "connected"
	EventOpponentLeft  = "opponentLeft"
	EventBoardState    = "boardState"
	EventMove          = "move"
	EventInvalidMove   = "invalidMove"
	EventGameOver      = "gameOver"
	EventGameRestarted = "gameRestarted"
)

// Client → server event names. "move" is shared with the server broadcast.
const (
	EventRestartGame = "restartGame"
)

// Envelope is one JSON frame on the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an envelope. A nil data yields an event without payload.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

// MustEnvelope is NewEnvelope for payload types that always marshal.
func MustEnvelope(event string, data any) Envelope {
	env, err := NewEnvelope(event, data)
	if err != nil {
		panic(err)
	}
	return env
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(e.Data, v)
}
