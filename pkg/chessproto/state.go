package chessproto

// StateSnapshot is the read-only session view served over HTTP.
type StateSnapshot struct {
	FEN        string         `json:"fen"`
	Turn       string         `json:"turn"`
	White      bool           `json:"white_seated"`
	Black      bool           `json:"black_seated"`
	Spectators int            `json:"spectators"`
	Clients    int            `json:"clients"`
	MovesUCI   []string       `json:"moves_uci"`
	MovesSAN   []string       `json:"moves_san"`
	LastMove   *MoveBroadcast `json:"last_move,omitempty"`
	Result     string         `json:"result,omitempty"`
	Winner     string         `json:"winner,omitempty"`
}
