package board

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/rules"
)

const (
	squareSize = 48
	margin     = 20
	boardSize  = squareSize * 8
)

var (
	lightSquare = color.RGBA{R: 0xEE, G: 0xEE, B: 0xD2, A: 0xFF}
	darkSquare  = color.RGBA{R: 0x76, G: 0x96, B: 0x56, A: 0xFF}
	lastMove    = color.RGBA{R: 0xF6, G: 0xF6, B: 0x69, A: 0x90}
	background  = color.RGBA{R: 0x30, G: 0x2E, B: 0x2B, A: 0xFF}
	labelColor  = color.RGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF}
)

// PNG writes <dir>/<gameID>/<ply>.png for every snapshot it is shown.
type PNG struct {
	dir    string
	gameID string
	log    *zap.Logger
}

func NewPNG(dir, gameID string) *PNG {
	return &PNG{dir: dir, gameID: gameID, log: obslog.L()}
}

func (p *PNG) Show(ctx context.Context, snap rules.Snapshot) {
	if p == nil || p.dir == "" {
		return
	}
	data, err := Render(ctx, snap)
	if err != nil {
		p.log.Warn("board_render_failed", zap.String("game", p.gameID), zap.Error(err))
		return
	}
	dir := filepath.Join(p.dir, p.gameID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.log.Warn("board_snapshot_dir", zap.String("dir", dir), zap.Error(err))
		return
	}
	path := filepath.Join(dir, strconv.Itoa(snap.Ply)+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		p.log.Warn("board_snapshot_write", zap.String("path", path), zap.Error(err))
	}
}

// Render draws the board with coordinates and the last move highlighted.
func Render(ctx context.Context, snap rules.Snapshot) ([]byte, error) {
	if snap.Board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	total := boardSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	origin := image.Point{X: margin, Y: margin}

	drawSquares(img, origin)
	drawLastMove(img, snap.LastMove, origin)
	if err := drawPieces(img, snap.Board, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func squareRect(file, rank int, origin image.Point) image.Rectangle {
	x := origin.X + file*squareSize
	y := origin.Y + (7-rank)*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(img *image.RGBA, origin image.Point) {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			clr := lightSquare
			if (file+rank)%2 == 0 {
				clr = darkSquare
			}
			draw.Draw(img, squareRect(file, rank, origin), image.NewUniform(clr), image.Point{}, draw.Src)
		}
	}
}

func drawLastMove(img *image.RGBA, uci string, origin image.Point) {
	if len(uci) < 4 {
		return
	}
	for _, s := range []string{uci[0:2], uci[2:4]} {
		sq, ok := notation.ParseSquare(s)
		if !ok {
			continue
		}
		draw.Draw(img, squareRect(sq.File, sq.Rank, origin), image.NewUniform(lastMove), image.Point{}, draw.Over)
	}
}

func drawPieces(img *image.RGBA, b *nchess.Board, origin image.Point) error {
	face := basicfont.Face7x13
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := notation.Square{File: file, Rank: rank}
			piece := b.Piece(sq.Engine())
			if piece == nchess.NoPiece {
				continue
			}
			glyph, err := pieceGlyph(piece.Color() == nchess.White)
			if err != nil {
				return err
			}
			r := squareRect(file, rank, origin)
			draw.Draw(img, r, glyph, image.Point{}, draw.Over)

			ink := color.Color(color.Black)
			if piece.Color() == nchess.Black {
				ink = color.White
			}
			d := &font.Drawer{Dst: img, Src: image.NewUniform(ink), Face: face}
			centerText(d, pieceLetter(piece.Type()), r.Min.X+squareSize/2, r.Min.Y+squareSize/2+face.Metrics().Ascent.Ceil()/2)
		}
	}
	return nil
}

func drawCoordinates(img *image.RGBA, origin image.Point) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		file := string(rune('a' + i))
		rank := strconv.Itoa(i + 1)
		fx := origin.X + i*squareSize + squareSize/2
		centerText(d, file, fx, origin.Y+boardSize+ascent+2)
		ry := origin.Y + (7-i)*squareSize + squareSize/2 + ascent/2
		centerText(d, rank, origin.X/2, ry)
	}
}

func centerText(d *font.Drawer, text string, centerX, baseline int) {
	width := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}

func pieceLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	case nchess.Pawn:
		return "P"
	default:
		return "?"
	}
}

var (
	glyphCache   = map[bool]image.Image{}
	glyphCacheMu sync.Mutex
)

const glyphSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 48 48" width="48" height="48">` +
	`<circle cx="24" cy="24" r="17" fill="%s" stroke="%s" stroke-width="2"/></svg>`

// pieceGlyph rasterises the disc drawn under a piece letter.
func pieceGlyph(white bool) (image.Image, error) {
	glyphCacheMu.Lock()
	defer glyphCacheMu.Unlock()
	if img, ok := glyphCache[white]; ok {
		return img, nil
	}
	fill, stroke := "#1E1E1E", "#F0F0F0"
	if white {
		fill, stroke = "#FAFAFA", "#202020"
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader([]byte(fmt.Sprintf(glyphSVG, fill, stroke))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, squareSize, squareSize)
	img := image.NewRGBA(image.Rect(0, 0, squareSize, squareSize))
	scanner := rasterx.NewScannerGV(squareSize, squareSize, img, img.Bounds())
	raster := rasterx.NewDasher(squareSize, squareSize, scanner)
	icon.Draw(raster, 1.0)
	glyphCache[white] = img
	return img, nil
}
