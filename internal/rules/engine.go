package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Standard implements Engine on top of corentings/chess.
type Standard struct {
	start   string
	game    *nchess.Game
	history []Applied
}

// NewStandard returns an engine at startFEN, or at the initial position when startFEN is empty.
func NewStandard(startFEN string) (*Standard, error) {
	s := &Standard{start: strings.TrimSpace(startFEN)}
	game, err := newGame(s.start)
	if err != nil {
		return nil, err
	}
	s.game = game
	return s, nil
}

func newGame(fen string) (*nchess.Game, error) {
	if fen == "" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

func (s *Standard) Apply(m Move) (Applied, error) {
	if s.Terminal().Over() {
		return Applied{}, ErrGameOver
	}
	from, ok := parseSquare(m.From)
	if !ok {
		return Applied{}, fmt.Errorf("%w: from %q", ErrMalformedMove, m.From)
	}
	to, ok := parseSquare(m.To)
	if !ok {
		return Applied{}, fmt.Errorf("%w: to %q", ErrMalformedMove, m.To)
	}
	promo := strings.ToLower(strings.TrimSpace(m.Promotion))
	switch promo {
	case "", "q", "r", "b", "n":
	default:
		return Applied{}, fmt.Errorf("%w: promotion %q", ErrMalformedMove, m.Promotion)
	}

	pos := s.game.Position()
	mover := colorFrom(pos.Turn())
	if promotes(pos, from, to) {
		if promo == "" {
			promo = "q"
		}
	} else {
		promo = ""
	}

	norm := Move{From: from.String(), To: to.String(), Promotion: promo}
	mv, err := nchess.UCINotation{}.Decode(pos, norm.UCI())
	if err != nil {
		return Applied{}, fmt.Errorf("%w: %s", ErrIllegalMove, norm.UCI())
	}
	if err := s.game.Move(mv, nil); err != nil {
		return Applied{}, fmt.Errorf("%w: %s", ErrIllegalMove, norm.UCI())
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	s.claimDraw()

	applied := Applied{Move: norm, SAN: san, Color: mover}
	s.history = append(s.history, applied)
	return applied, nil
}

// claimDraw ends the game on draws the library only offers as claimable.
func (s *Standard) claimDraw() {
	if s.game.Outcome() != nchess.NoOutcome {
		return
	}
	for _, method := range s.game.EligibleDraws() {
		switch method {
		case nchess.ThreefoldRepetition, nchess.FiftyMoveRule:
			if err := s.game.Draw(method); err == nil {
				return
			}
		}
	}
}

func (s *Standard) Terminal() Result {
	method := s.game.Method()
	switch s.game.Outcome() {
	case nchess.WhiteWon:
		return Result{Kind: ResultCheckmate, Winner: White, Method: method.String()}
	case nchess.BlackWon:
		return Result{Kind: ResultCheckmate, Winner: Black, Method: method.String()}
	case nchess.Draw:
		if method == nchess.Stalemate {
			return Result{Kind: ResultStalemate, Method: method.String()}
		}
		return Result{Kind: ResultDraw, Method: method.String()}
	default:
		return Result{}
	}
}

func (s *Standard) Turn() Color { return colorFrom(s.game.Position().Turn()) }

func (s *Standard) FEN() string { return s.game.FEN() }

// Load replaces the current position. History is cleared; Reset still returns to the start position.
func (s *Standard) Load(fen string) error {
	game, err := newGame(strings.TrimSpace(fen))
	if err != nil {
		return err
	}
	s.game = game
	s.history = nil
	return nil
}

func (s *Standard) Reset() {
	game, err := newGame(s.start)
	if err != nil {
		// start was validated in NewStandard
		game = nchess.NewGame()
	}
	s.game = game
	s.history = nil
}

func (s *Standard) History() []Applied {
	return append([]Applied(nil), s.history...)
}

// InitialFEN is the standard starting position.
func InitialFEN() string { return nchess.NewGame().FEN() }

func parseSquare(raw string) (nchess.Square, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if len(v) != 2 {
		return nchess.NoSquare, false
	}
	file, rank := v[0], v[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(file-'a'), nchess.Rank(rank-'1')), true
}

func promotes(pos *nchess.Position, from, to nchess.Square) bool {
	piece := pos.Board().Piece(from)
	if piece.Type() != nchess.Pawn {
		return false
	}
	if piece.Color() == nchess.White {
		return to.Rank() == nchess.Rank8
	}
	return to.Rank() == nchess.Rank1
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
