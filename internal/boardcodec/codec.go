// Package boardcodec converts between FEN-like placement notation and domain snapshots.
package boardcodec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-board-client/internal/domain"
)

const StartingNotation = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrMalformedNotation = errors.New("malformed board notation")

var letterKinds = map[rune]domain.Kind{
	'p': domain.Pawn,
	'n': domain.Knight,
	'b': domain.Bishop,
	'r': domain.Rook,
	'q': domain.Queen,
	'k': domain.King,
}

var kindLetters = map[domain.Kind]byte{
	domain.Pawn:   'p',
	domain.Knight: 'n',
	domain.Bishop: 'b',
	domain.Rook:   'r',
	domain.Queen:  'q',
	domain.King:   'k',
}

// Decode parses the placement field of notation. Fields after the first space
// (side to move, castling, clocks) are accepted and ignored.
func Decode(notation string) (domain.Snapshot, error) {
	fields := strings.Fields(notation)
	if len(fields) == 0 {
		return domain.Snapshot{}, fmt.Errorf("%w: empty", ErrMalformedNotation)
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return domain.Snapshot{}, fmt.Errorf("%w: want 8 ranks, got %d", ErrMalformedNotation, len(ranks))
	}

	pieces := make(map[domain.Square]domain.Piece, 32)
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for _, c := range row {
			switch {
			case c >= '1' && c <= '8':
				file += int(c - '0')
			default:
				kind, ok := letterKinds[toLower(c)]
				if !ok {
					return domain.Snapshot{}, fmt.Errorf("%w: unrecognized piece %q in rank %d", ErrMalformedNotation, c, rank+1)
				}
				if file > 7 {
					return domain.Snapshot{}, fmt.Errorf("%w: rank %d overflows 8 files", ErrMalformedNotation, rank+1)
				}
				side := domain.Dark
				if c >= 'A' && c <= 'Z' {
					side = domain.Light
				}
				pieces[domain.Square{File: file, Rank: rank}] = domain.Piece{Kind: kind, Side: side}
				file++
			}
			if file > 8 {
				return domain.Snapshot{}, fmt.Errorf("%w: rank %d overflows 8 files", ErrMalformedNotation, rank+1)
			}
		}
		if file != 8 {
			return domain.Snapshot{}, fmt.Errorf("%w: rank %d has %d files", ErrMalformedNotation, rank+1, file)
		}
	}
	return domain.NewSnapshot(pieces)
}

// Encode renders the placement field only.
func Encode(s domain.Snapshot) string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p, ok := s.Piece(domain.Square{File: file, Rank: rank})
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(Letter(p))
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}
	return b.String()
}

// Letter returns the notation letter of p, uppercase for Light.
func Letter(p domain.Piece) byte {
	l := kindLetters[p.Kind]
	if p.Side == domain.Light {
		l -= 'a' - 'A'
	}
	return l
}

// Starting returns the decoded starting position.
func Starting() domain.Snapshot {
	s, err := Decode(StartingNotation)
	if err != nil {
		panic(err)
	}
	return s
}

func toLower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
