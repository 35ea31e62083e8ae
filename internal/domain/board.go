package domain

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidSquare = errors.New("square out of range")

// Side is the owner of a piece. Light moves first.
type Side int

const (
	Light Side = iota
	Dark
)

func (s Side) String() string {
	if s == Dark {
		return "dark"
	}
	return "light"
}

// Kind is the closed set of piece tags.
type Kind int

const (
	Pawn Kind = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"pawn", "knight", "bishop", "rook", "queen", "king"}

func (k Kind) String() string {
	if k < Pawn || k > King {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

type Piece struct {
	Kind Kind
	Side Side
}

func (p Piece) String() string { return p.Side.String() + " " + p.Kind.String() }

// Square is a board-local coordinate; File 0 is the a-file and Rank 0 is the first rank.
type Square struct {
	File int
	Rank int
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File <= 7 && s.Rank >= 0 && s.Rank <= 7
}

func (s Square) Check() error {
	if !s.Valid() {
		return fmt.Errorf("%w: (%d,%d)", ErrInvalidSquare, s.File, s.Rank)
	}
	return nil
}

// Snapshot is an immutable square → piece mapping.
// It is only ever replaced as a whole, never patched.
type Snapshot struct {
	pieces map[Square]Piece
}

// NewSnapshot copies m. Squares outside the board are rejected.
func NewSnapshot(m map[Square]Piece) (Snapshot, error) {
	out := make(map[Square]Piece, len(m))
	for sq, p := range m {
		if err := sq.Check(); err != nil {
			return Snapshot{}, err
		}
		out[sq] = p
	}
	return Snapshot{pieces: out}, nil
}

func (s Snapshot) Len() int { return len(s.pieces) }

func (s Snapshot) Piece(sq Square) (Piece, bool) {
	p, ok := s.pieces[sq]
	return p, ok
}

// Squares returns occupied squares ordered rank-major from a1.
func (s Snapshot) Squares() []Square {
	out := make([]Square, 0, len(s.pieces))
	for sq := range s.pieces {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].File < out[j].File
	})
	return out
}

// Each visits pieces in Squares() order.
func (s Snapshot) Each(fn func(Square, Piece)) {
	for _, sq := range s.Squares() {
		fn(sq, s.pieces[sq])
	}
}

func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.pieces) != len(o.pieces) {
		return false
	}
	for sq, p := range s.pieces {
		if q, ok := o.pieces[sq]; !ok || q != p {
			return false
		}
	}
	return true
}

// LobbySession is handed over by the lobby collaborator; the client never creates one.
type LobbySession struct {
	ID   string
	Code string
}

// MoveRequest is built per attempt and discarded afterwards.
type MoveRequest struct {
	SessionID string
	From      string
	To        string
}
