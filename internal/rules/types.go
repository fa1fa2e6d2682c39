package rules

import "errors"

// Color is the side to move, encoded the way positions encode it.
type Color string

const (
	White   Color = "w"
	Black   Color = "b"
	NoColor Color = ""
)

// Name returns the display name used in game-over notices.
func (c Color) Name() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return ""
	}
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// Move is a coordinate move as submitted by a client.
type Move struct {
	From      string
	To        string
	Promotion string
}

// UCI returns the move in long algebraic form.
func (m Move) UCI() string { return m.From + m.To + m.Promotion }

// Applied describes a move accepted by the engine.
type Applied struct {
	Move  Move
	SAN   string
	Color Color
}

// ResultKind is the terminal classification of a position.
type ResultKind string

const (
	ResultNone      ResultKind = ""
	ResultCheckmate ResultKind = "checkmate"
	ResultStalemate ResultKind = "stalemate"
	ResultDraw      ResultKind = "draw"
)

// Result is the terminal state of the game. Winner is set for checkmate only.
type Result struct {
	Kind   ResultKind
	Winner Color
	Method string
}

// Over reports whether the game has ended.
func (r Result) Over() bool { return r.Kind != ResultNone }

var (
	ErrMalformedMove = errors.New("malformed move")
	ErrIllegalMove   = errors.New("illegal move")
	ErrGameOver      = errors.New("game already over")
	ErrInvalidFEN    = errors.New("invalid fen")
)

// Engine is everything the session needs from a chess rules implementation.
type Engine interface {
	Apply(m Move) (Applied, error)
	Terminal() Result
	Turn() Color
	FEN() string
	Load(fen string) error
	Reset()
	History() []Applied
}
