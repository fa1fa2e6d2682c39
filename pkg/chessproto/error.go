package chessproto

import "errors"

var errEmptyPayload = errors.New("empty payload")

// Reason codes carried by InvalidMove.
const (
	ReasonMalformed   = "malformed"
	ReasonNotSeated   = "not_seated"
	ReasonNotYourTurn = "not_your_turn"
	ReasonIllegal     = "illegal"
	ReasonGameOver    = "game_over"
)
