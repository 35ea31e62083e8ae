package scene

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-board-client/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	margin       = 28
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	highlightFill       = color.NRGBA{R: 84, G: 84, B: 255, A: 110}
	coordinateTextColor = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	backgroundColor     = color.RGBA{245, 242, 236, 255}
)

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

// RenderPNG draws the current entity table, using each entity's current color,
// so a selected piece shows up highlighted. highlight marks one extra square.
func (s *Scene) RenderPNG(ctx context.Context, highlight *domain.Square) ([]byte, error) {
	entities := s.Entities()

	board, fills := toBoard(entities)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	total := boardSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	origin := image.Point{X: margin, Y: margin}
	drawSquares(img, origin)
	if highlight != nil {
		if err := highlight.Check(); err != nil {
			return nil, err
		}
		sq := nchess.NewSquare(nchess.File(highlight.File), nchess.Rank(highlight.Rank))
		imagedraw.Draw(img, squareRect(sq, origin), image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
	}
	if err := drawPieces(img, board, fills, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

func toBoard(entities []Entity) (*nchess.Board, map[nchess.Square]color.RGBA) {
	pieces := make(map[nchess.Square]nchess.Piece, len(entities))
	fills := make(map[nchess.Square]color.RGBA, len(entities))
	for _, e := range entities {
		sq := nchess.NewSquare(nchess.File(e.Square.File), nchess.Rank(e.Square.Rank))
		pieces[sq] = toPiece(e.Piece)
		fills[sq] = e.Color
	}
	return nchess.NewBoard(pieces), fills
}

func toPiece(p domain.Piece) nchess.Piece {
	c := nchess.White
	if p.Side == domain.Dark {
		c = nchess.Black
	}
	var t nchess.PieceType
	switch p.Kind {
	case domain.Pawn:
		t = nchess.Pawn
	case domain.Knight:
		t = nchess.Knight
	case domain.Bishop:
		t = nchess.Bishop
	case domain.Rook:
		t = nchess.Rook
	case domain.Queen:
		t = nchess.Queen
	case domain.King:
		t = nchess.King
	}
	return nchess.NewPiece(t, c)
}

func fromPiece(p nchess.Piece) domain.Piece {
	side := domain.Light
	if p.Color() == nchess.Black {
		side = domain.Dark
	}
	var k domain.Kind
	switch p.Type() {
	case nchess.Pawn:
		k = domain.Pawn
	case nchess.Knight:
		k = domain.Knight
	case nchess.Bishop:
		k = domain.Bishop
	case nchess.Rook:
		k = domain.Rook
	case nchess.Queen:
		k = domain.Queen
	case nchess.King:
		k = domain.King
	}
	return domain.Piece{Kind: k, Side: side}
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, fills map[nchess.Square]color.RGBA, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(fromPiece(piece), fills[sq], squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
		Src:  image.NewUniform(coordinateTextColor),
	}
	ascent := face.Metrics().Ascent.Ceil()

	for row, rank := range ranks {
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, baseline)
	}
	for col, file := range files {
		center := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), center, origin.Y+boardSize+ascent+4)
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

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
