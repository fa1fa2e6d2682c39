package chessproto

// MoveRequest is the client's move payload.
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// MoveBroadcast is sent to every connection after a move is applied.
type MoveBroadcast struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
	Color     string `json:"color"`
}

// InvalidMove is sent to the offending connection only.
type InvalidMove struct {
	Move    *MoveRequest `json:"move,omitempty"`
	Reason  string       `json:"reason"`
	Message string       `json:"message,omitempty"`
}

// GameOver carries the terminal result. Winner is "White", "Black" or null.
type GameOver struct {
	Result  string  `json:"result"`
	Winner  *string `json:"winner"`
	Message string  `json:"message,omitempty"`
}
