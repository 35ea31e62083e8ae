package boardcodec

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-board-client/internal/domain"
)

func TestDecodeStartingPosition(t *testing.T) {
	s, err := Decode(StartingNotation)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Len() != 32 {
		t.Fatalf("expected 32 pieces, got %d", s.Len())
	}
	counts := map[domain.Side]int{}
	s.Each(func(_ domain.Square, p domain.Piece) { counts[p.Side]++ })
	if counts[domain.Light] != 16 || counts[domain.Dark] != 16 {
		t.Fatalf("expected 16 per side, got %v", counts)
	}
	for _, tc := range []struct {
		token string
		want  domain.Piece
	}{
		{"e1", domain.Piece{Kind: domain.King, Side: domain.Light}},
		{"e8", domain.Piece{Kind: domain.King, Side: domain.Dark}},
		{"d1", domain.Piece{Kind: domain.Queen, Side: domain.Light}},
		{"a8", domain.Piece{Kind: domain.Rook, Side: domain.Dark}},
		{"g1", domain.Piece{Kind: domain.Knight, Side: domain.Light}},
		{"c8", domain.Piece{Kind: domain.Bishop, Side: domain.Dark}},
		{"h2", domain.Piece{Kind: domain.Pawn, Side: domain.Light}},
		{"a7", domain.Piece{Kind: domain.Pawn, Side: domain.Dark}},
	} {
		sq, err := DecodeSquare(tc.token)
		if err != nil {
			t.Fatalf("DecodeSquare(%s): %v", tc.token, err)
		}
		got, ok := s.Piece(sq)
		if !ok || got != tc.want {
			t.Fatalf("%s: got %v (present=%v), want %v", tc.token, got, ok, tc.want)
		}
	}
}

func TestStartingRoundTrip(t *testing.T) {
	s := Starting()
	if got := Encode(s); got != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" {
		t.Fatalf("Encode(start) = %q", got)
	}
	again, err := Decode(Encode(s))
	if err != nil {
		t.Fatalf("Decode(Encode): %v", err)
	}
	if !again.Equal(s) {
		t.Fatalf("round trip changed the arrangement")
	}
	// square-by-square re-encode
	for _, sq := range s.Squares() {
		tok, err := EncodeSquare(sq)
		if err != nil {
			t.Fatalf("EncodeSquare: %v", err)
		}
		back, err := DecodeSquare(tok)
		if err != nil || back != sq {
			t.Fatalf("square %v -> %q -> %v (%v)", sq, tok, back, err)
		}
	}
}

func TestDecodeMatchesChessLibrary(t *testing.T) {
	notations := []string{
		StartingNotation,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
		"8/8/8/4k3/8/8/8/4K3 w - - 0 1",
	}
	kinds := map[nchess.PieceType]domain.Kind{
		nchess.Pawn: domain.Pawn, nchess.Knight: domain.Knight, nchess.Bishop: domain.Bishop,
		nchess.Rook: domain.Rook, nchess.Queen: domain.Queen, nchess.King: domain.King,
	}
	for _, n := range notations {
		s, err := Decode(n)
		if err != nil {
			t.Fatalf("Decode(%q): %v", n, err)
		}
		opt, err := nchess.FEN(n)
		if err != nil {
			t.Fatalf("nchess.FEN(%q): %v", n, err)
		}
		ref := nchess.NewGame(opt).Position().Board().SquareMap()
		if len(ref) != s.Len() {
			t.Fatalf("%q: piece count %d, library %d", n, s.Len(), len(ref))
		}
		for sq, p := range ref {
			got, ok := s.Piece(domain.Square{File: int(sq.File()), Rank: int(sq.Rank())})
			if !ok {
				t.Fatalf("%q: missing piece on %s", n, sq)
			}
			side := domain.Light
			if p.Color() == nchess.Black {
				side = domain.Dark
			}
			if got.Kind != kinds[p.Type()] || got.Side != side {
				t.Fatalf("%q: %s got %v", n, sq, got)
			}
		}
	}
}

func TestDecodeCountsOnePiecePerLetter(t *testing.T) {
	n := "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	s, err := Decode(n)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Len() != 6 {
		t.Fatalf("expected 6 pieces, got %d", s.Len())
	}
	for _, sq := range s.Squares() {
		if !sq.Valid() {
			t.Fatalf("square out of range: %v", sq)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name     string
		notation string
	}{
		{"empty", ""},
		{"nine file rank", "ppppppppp/8/8/8/8/8/8/rnbqkbnr"},
		{"short rank", "ppppppp/8/8/8/8/8/8/rnbqkbnr"},
		{"digit overflow", "7pp/8/8/8/8/8/8/8"},
		{"unknown letter", "x7/8/8/8/8/8/8/8"},
		{"zero digit", "08/8/8/8/8/8/8/8"},
		{"fewer ranks", "8/8/8/8/8/8/8"},
		{"more ranks", "8/8/8/8/8/8/8/8/8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.notation)
			if !errors.Is(err, ErrMalformedNotation) {
				t.Fatalf("expected ErrMalformedNotation, got %v", err)
			}
		})
	}
}

func TestSquareTokens(t *testing.T) {
	tok, err := EncodeSquare(domain.Square{File: 0, Rank: 0})
	if err != nil || tok != "a1" {
		t.Fatalf("a1: %q %v", tok, err)
	}
	tok, err = EncodeSquare(domain.Square{File: 7, Rank: 7})
	if err != nil || tok != "h8" {
		t.Fatalf("h8: %q %v", tok, err)
	}
	if _, err := EncodeSquare(domain.Square{File: 8, Rank: 0}); !errors.Is(err, domain.ErrInvalidSquare) {
		t.Fatalf("expected ErrInvalidSquare, got %v", err)
	}
	for _, bad := range []string{"", "a", "i1", "a9", "a0", "e22"} {
		if _, err := DecodeSquare(bad); !errors.Is(err, domain.ErrInvalidSquare) {
			t.Fatalf("DecodeSquare(%q): expected ErrInvalidSquare, got %v", bad, err)
		}
	}
}
