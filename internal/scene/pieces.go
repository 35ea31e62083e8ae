package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// piece silhouettes on a 45x45 view box; %[1]s is the fill, %[2]s the outline
var pieceShapes = map[domain.Kind]string{
	domain.Pawn: `<circle cx="22.5" cy="14" r="5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<path d="M15 36 L30 36 L26 21 L19 21 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="12" y="35" width="21" height="4" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	domain.Rook: `<path d="M13 36 L32 36 L32 32 L29 32 L29 16 L32 16 L32 10 L28 10 L28 13 L24.5 13 L24.5 10 ` +
		`L20.5 10 L20.5 13 L17 13 L17 10 L13 10 L13 16 L16 16 L16 32 L13 32 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<rect x="11" y="35" width="23" height="4" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	domain.Knight: `<path d="M14 36 L32 36 L30 22 C30 14 26 9 20 9 L18 6 L16 10 L11 17 L13 20 L18 18 L16 24 Z" ` +
		`fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="18" cy="13" r="1.2" fill="%[2]s"/>`,
	domain.Bishop: `<circle cx="22.5" cy="9" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<path d="M15 36 L30 36 L27 30 C31 24 28 16 22.5 11.5 C17 16 14 24 18 30 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	domain.Queen: `<path d="M11 36 L34 36 L31 28 L35 14 L28 24 L27 11 L22.5 23 L18 11 L17 24 L10 14 L14 28 Z" ` +
		`fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>` +
		`<circle cx="10" cy="13" r="2" fill="%[1]s" stroke="%[2]s"/>` +
		`<circle cx="18" cy="10" r="2" fill="%[1]s" stroke="%[2]s"/>` +
		`<circle cx="27" cy="10" r="2" fill="%[1]s" stroke="%[2]s"/>` +
		`<circle cx="35" cy="13" r="2" fill="%[1]s" stroke="%[2]s"/>`,
	domain.King: `<rect x="21" y="5" width="3" height="12" fill="%[1]s" stroke="%[2]s"/>` +
		`<rect x="17.5" y="8" width="10" height="3" fill="%[1]s" stroke="%[2]s"/>` +
		`<path d="M12 36 L33 36 L30 26 C34 20 30 16 22.5 20 C15 16 11 20 15 26 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
}

type pieceCacheKey struct {
	piece domain.Piece
	fill  color.RGBA
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(p domain.Piece, fill color.RGBA) (string, error) {
	shape, ok := pieceShapes[p.Kind]
	if !ok {
		return "", fmt.Errorf("no shape for piece kind %v", p.Kind)
	}
	outline := "#101010"
	if p.Side == domain.Dark {
		outline = "#f0f0f0"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, shape, hexColor(fill), outline)
	b.WriteString(`</svg>`)
	return b.String(), nil
}

func renderPieceImage(p domain.Piece, fill color.RGBA, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, fill: fill, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := pieceSVG(p, fill)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
