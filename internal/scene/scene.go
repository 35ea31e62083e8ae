// Package scene keeps the table of drawable piece entities for the current board.
package scene

import (
	"image/color"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/park285/cheese-board-client/internal/selection"
	"go.uber.org/zap"
)

type Vec3 struct {
	X, Y, Z float64
}

// Entity is one drawn piece. IDs are regenerated on every redraw.
type Entity struct {
	ID        string
	Piece     domain.Piece
	Square    domain.Square
	Position  Vec3
	RotationY float64
	Color     color.RGBA
}

type Scene struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	bySquare map[domain.Square]string
	palette  selection.Palette
	redraws  int

	logger *zap.Logger
}

func New(palette selection.Palette, logger *zap.Logger) *Scene {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scene{
		entities: make(map[string]*Entity),
		bySquare: make(map[domain.Square]string),
		palette:  palette,
		logger:   logger,
	}
}

// Redraw drops every entity and builds one per occupied square of snap.
// Refs held from before the call stop resolving.
func (s *Scene) Redraw(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.entities)
	clear(s.bySquare)

	snap.Each(func(sq domain.Square, p domain.Piece) {
		e := &Entity{
			ID:       uuid.NewString(),
			Piece:    p,
			Square:   sq,
			Position: Vec3{X: float64(sq.File), Y: 0, Z: float64(sq.Rank)},
			Color:    s.palette.Resting(p.Side),
		}
		// dark pieces face the other way
		if p.Side == domain.Dark {
			e.RotationY = 180
		}
		s.entities[e.ID] = e
		s.bySquare[sq] = e.ID
	})
	s.redraws++
	s.logger.Debug("scene_redrawn", zap.Int("entities", len(s.entities)), zap.Int("redraws", s.redraws))
}

// Paint implements selection.Painter.
func (s *Scene) Paint(id string, c color.RGBA) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return false
	}
	e.Color = c
	return true
}

func (s *Scene) Entity(id string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

func (s *Scene) EntityAt(sq domain.Square) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySquare[sq]
	if !ok {
		return Entity{}, false
	}
	return *s.entities[id], true
}

// Entities returns a copy of the table in Snapshot.Squares order.
func (s *Scene) Entities() []Entity {
	s.mu.RLock()
	out := make([]Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, *e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Square, out[j].Square
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.File < b.File
	})
	return out
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Ref builds a selection handle for the entity with the given ID.
func (s *Scene) Ref(id string) *selection.Ref {
	e, ok := s.Entity(id)
	if !ok {
		return nil
	}
	return &selection.Ref{ID: e.ID, Side: e.Piece.Side, Square: e.Square}
}
