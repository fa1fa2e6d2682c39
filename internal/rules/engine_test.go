package rules

import (
	"errors"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T, fen string) *Standard {
	t.Helper()
	e, err := NewStandard(fen)
	if err != nil {
		t.Fatalf("NewStandard: %v", err)
	}
	return e
}

func play(t *testing.T, e *Standard, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		if _, err := e.Apply(Move{From: mv[:2], To: mv[2:4]}); err != nil {
			t.Fatalf("Apply %s: %v", mv, err)
		}
	}
}

func TestApply_OpeningMoveFlipsTurn(t *testing.T) {
	e := newTestEngine(t, "")
	if e.Turn() != White {
		t.Fatalf("initial turn: got %q", e.Turn())
	}
	applied, err := e.Apply(Move{From: "e2", To: "e4", Promotion: "q"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.SAN != "e4" || applied.Color != White {
		t.Fatalf("unexpected applied move: %+v", applied)
	}
	if applied.Move.Promotion != "" {
		t.Fatalf("promotion on a non-promoting move should be dropped, got %q", applied.Move.Promotion)
	}
	if e.Turn() != Black {
		t.Fatalf("turn after e4: got %q", e.Turn())
	}
	if !strings.HasPrefix(e.FEN(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") {
		t.Fatalf("unexpected fen: %s", e.FEN())
	}
}

func TestApply_Rejections(t *testing.T) {
	cases := []struct {
		name string
		move Move
		want error
	}{
		{name: "illegal pawn jump", move: Move{From: "e2", To: "e5"}, want: ErrIllegalMove},
		{name: "empty origin square", move: Move{From: "e4", To: "e5"}, want: ErrIllegalMove},
		{name: "black piece on white turn", move: Move{From: "e7", To: "e5"}, want: ErrIllegalMove},
		{name: "off-board square", move: Move{From: "i2", To: "i4"}, want: ErrMalformedMove},
		{name: "empty square", move: Move{From: "", To: "e4"}, want: ErrMalformedMove},
		{name: "bad promotion", move: Move{From: "e2", To: "e4", Promotion: "k"}, want: ErrMalformedMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, "")
			before := e.FEN()
			_, err := e.Apply(tc.move)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if e.FEN() != before {
				t.Fatalf("position changed after rejected move")
			}
		})
	}
}

func TestTerminal_FoolsMate(t *testing.T) {
	e := newTestEngine(t, "")
	play(t, e, "f2f3", "e7e5", "g2g4", "d8h4")
	res := e.Terminal()
	if res.Kind != ResultCheckmate || res.Winner != Black {
		t.Fatalf("want checkmate by black, got %+v", res)
	}
	if _, err := e.Apply(Move{From: "a2", To: "a3"}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("want ErrGameOver after mate, got %v", err)
	}
}

func TestTerminal_Stalemate(t *testing.T) {
	e := newTestEngine(t, "7k/8/6K1/8/8/8/8/5Q2 w - - 0 1")
	play(t, e, "f1f7")
	if res := e.Terminal(); res.Kind != ResultStalemate || res.Winner != NoColor {
		t.Fatalf("want stalemate, got %+v", res)
	}
}

func TestTerminal_InsufficientMaterial(t *testing.T) {
	e := newTestEngine(t, "k7/8/8/8/8/8/8/Kr6 w - - 0 1")
	if res := e.Terminal(); res.Over() {
		t.Fatalf("game should still be live, got %+v", res)
	}
	play(t, e, "a1b1")
	if res := e.Terminal(); res.Kind != ResultDraw || res.Winner != NoColor {
		t.Fatalf("want draw, got %+v", res)
	}
}

func TestApply_PositionAlreadyDrawn(t *testing.T) {
	e := newTestEngine(t, "k7/8/8/8/8/8/8/Kn6 w - - 0 1")
	if res := e.Terminal(); res.Kind != ResultDraw {
		t.Fatalf("want drawn start, got %+v", res)
	}
	if _, err := e.Apply(Move{From: "a1", To: "b1"}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("want ErrGameOver, got %v", err)
	}
}

func TestApply_DefaultPromotionIsQueen(t *testing.T) {
	e := newTestEngine(t, "k7/4P3/8/8/8/8/8/K7 w - - 0 1")
	applied, err := e.Apply(Move{From: "e7", To: "e8"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Move.Promotion != "q" {
		t.Fatalf("want queen promotion, got %q", applied.Move.Promotion)
	}
	if !strings.HasPrefix(e.FEN(), "k3Q3/") {
		t.Fatalf("unexpected fen after promotion: %s", e.FEN())
	}
}

func TestResetAndLoad(t *testing.T) {
	e := newTestEngine(t, "")
	play(t, e, "e2e4", "e7e5")
	if len(e.History()) != 2 {
		t.Fatalf("history: got %d", len(e.History()))
	}
	e.Reset()
	if e.FEN() != InitialFEN() {
		t.Fatalf("reset fen: %s", e.FEN())
	}
	if len(e.History()) != 0 {
		t.Fatalf("history not cleared on reset")
	}
	if err := e.Load("not a fen"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("want ErrInvalidFEN, got %v", err)
	}
	if _, err := NewStandard("garbage"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("want ErrInvalidFEN from NewStandard, got %v", err)
	}
}

func TestColor(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("opponent mapping broken")
	}
	if White.Name() != "White" || Black.Name() != "Black" {
		t.Fatalf("name mapping broken")
	}
}
