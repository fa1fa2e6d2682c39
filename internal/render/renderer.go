package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrBadFEN = errors.New("render: invalid fen")

// Highlight marks the last move, in coordinate notation ("e2", "e4").
type Highlight struct {
	From string
	To   string
}

type Options struct {
	Highlight *Highlight
	// Flip draws the board from black's side.
	Flip bool
	// Caption is printed in a panel above the board; empty hides the panel.
	Caption string
}

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 28
	captionSpace = 48
	panelRadius  = 10
	panelHeight  = 30
	panelPadding = 18
)

// PNG renders the position described by fen.
func PNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	optFEN, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
	}
	board := nchess.NewGame(optFEN).Position().Board()

	topMargin := sideMargin
	if strings.TrimSpace(opts.Caption) != "" {
		topMargin = captionSpace + sideMargin/2
	}
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+sideMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	g := geometry{origin: origin, flip: opts.Flip}
	drawCaption(img, opts.Caption, image.Rect(origin.X, 8, origin.X+boardSize, 8+panelHeight))
	drawSquares(img, g)
	drawHighlight(img, board, opts.Highlight, g)
	if err := drawPieces(img, board, g); err != nil {
		return nil, err
	}
	drawCoordinates(img, g)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{28, 31, 46, 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	panelColor              = color.NRGBA{R: 44, G: 48, B: 68, A: 250}
	panelTextColor          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// geometry maps squares to pixels for one orientation.
type geometry struct {
	origin image.Point
	flip   bool
}

func (g geometry) cell(sq nchess.Square) (col, row int) {
	col = int(sq.File())
	row = 7 - int(sq.Rank())
	if g.flip {
		col, row = 7-col, 7-row
	}
	return col, row
}

func (g geometry) rect(sq nchess.Square) image.Rectangle {
	col, row := g.cell(sq)
	x := g.origin.X + col*squareSize
	y := g.origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func (g geometry) center(sq nchess.Square) pointF {
	r := g.rect(sq)
	return pointF{X: float64(r.Min.X + squareSize/2), Y: float64(r.Min.Y + squareSize/2)}
}

func allSquares() []nchess.Square {
	out := make([]nchess.Square, 0, 64)
	for r := 0; r < boardSquares; r++ {
		for f := 0; f < boardSquares; f++ {
			out = append(out, nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
		}
	}
	return out
}

func drawSquares(dst *image.RGBA, g geometry) {
	for _, sq := range allSquares() {
		imagedraw.Draw(dst, g.rect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst *image.RGBA, board *nchess.Board, g geometry) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, g.rect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight fills both squares for a white move and draws an arrow for a black one.
func drawHighlight(img *image.RGBA, board *nchess.Board, h *Highlight, g geometry) {
	if h == nil {
		return
	}
	from, okFrom := parseSquare(h.From)
	to, okTo := parseSquare(h.To)
	if !okFrom || !okTo || from == to {
		return
	}
	if piece := board.Piece(to); piece != nchess.NoPiece && piece.Color() == nchess.Black {
		drawArrow(img, g.center(from), g.center(to), blackMoveHighlightArrow)
		return
	}
	imagedraw.Draw(img, g.rect(from), image.NewUniform(whiteMoveHighlightFill), image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, g.rect(to), image.NewUniform(whiteMoveHighlightFill), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, start, end pointF, clr color.Color) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	dirX := dx / length
	dirY := dy / length
	perpX := -dirY
	perpY := dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.12
	headWidth := float64(squareSize) * 0.5

	baseX := start.X + dirX*baseLength
	baseY := start.Y + dirY*baseLength

	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func drawCaption(img *image.RGBA, caption string, rect image.Rectangle) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return
	}
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	width := drawer.MeasureString(caption).Round() + panelPadding*2
	if width < rect.Dx() {
		left := rect.Min.X + (rect.Dx()-width)/2
		rect = image.Rect(left, rect.Min.Y, left+width, rect.Max.Y)
	}
	drawRoundedPanel(img, rect, panelRadius, panelColor)

	metrics := drawer.Face.Metrics()
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(panelTextColor)
	drawCenteredText(drawer, caption, rect.Min.X+rect.Dx()/2, baseline)
}

func drawCoordinates(dst *image.RGBA, g geometry) {
	drawer := &font.Drawer{
		Dst:  dst,
		Face: basicfont.Face7x13,
		Src:  image.NewUniform(coordinateTextColor),
	}
	ascent := drawer.Face.Metrics().Ascent.Ceil()
	boardBottom := g.origin.Y + boardSize

	for i := 0; i < boardSquares; i++ {
		rank := nchess.NewSquare(nchess.FileA, nchess.Rank(i))
		_, row := g.cell(rank)
		drawCenteredText(drawer, nchess.Rank(i).String(), g.origin.X-sideMargin/2, g.origin.Y+row*squareSize+squareSize/2+ascent/2)

		file := nchess.NewSquare(nchess.File(i), nchess.Rank1)
		col, _ := g.cell(file)
		drawCenteredText(drawer, nchess.File(i).String(), g.origin.X+col*squareSize+squareSize/2, boardBottom+ascent+2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawCornerDisc(img, c, radius, clr, rect)
	}
}

// drawCornerDisc fills the quarter of a disc that lies outside the panel's straight edges.
func drawCornerDisc(img *image.RGBA, center image.Point, radius int, clr color.Color, panel image.Rectangle) {
	inner := image.Rect(panel.Min.X+radius, panel.Min.Y, panel.Max.X-radius, panel.Max.Y)
	side := image.Rect(panel.Min.X, panel.Min.Y+radius, panel.Max.X, panel.Max.Y-radius)
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if p.In(inner) || p.In(side) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	// RGBA() is alpha-premultiplied
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	inv := 1 - srcA
	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8((srcR + float64(dst.R)/255.0*inv) * 255.0),
		G: floatToUint8((srcG + float64(dst.G)/255.0*inv) * 255.0),
		B: floatToUint8((srcB + float64(dst.B)/255.0*inv) * 255.0),
		A: floatToUint8((srcA + float64(dst.A)/255.0*inv) * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func parseSquare(s string) (nchess.Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

type pointF struct {
	X float64
	Y float64
}
