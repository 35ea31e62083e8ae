// Package selection tracks which board entity, if any, is currently selected.
package selection

import (
	"image/color"
	"sync"

	"github.com/park285/cheese-board-client/internal/domain"
)

// Ref is a weak handle to a scene entity. The scene owns the entity; a Ref may
// outlive it after a full redraw, in which case painting it is a no-op.
type Ref struct {
	ID     string
	Side   domain.Side
	Square domain.Square
}

// Painter applies a color to an entity by ID and reports whether the entity still exists.
type Painter interface {
	Paint(id string, c color.RGBA) bool
}

type Palette struct {
	Selected color.RGBA
	Light    color.RGBA
	Dark     color.RGBA
}

func DefaultPalette() Palette {
	return Palette{
		Selected: color.RGBA{R: 84, G: 84, B: 255, A: 255},
		Light:    color.RGBA{R: 223, G: 210, B: 194, A: 255},
		Dark:     color.RGBA{R: 84, G: 84, B: 84, A: 255},
	}
}

// Resting is the color an unselected entity of side s returns to.
func (p Palette) Resting(s domain.Side) color.RGBA {
	if s == domain.Dark {
		return p.Dark
	}
	return p.Light
}

// State is either Empty or Holding one Ref.
type State struct {
	mu      sync.Mutex
	painter Painter
	palette Palette
	held    *Ref
}

func New(painter Painter, palette Palette) *State {
	return &State{painter: painter, palette: palette}
}

// Select restores the held entity (if any) and then highlights ref.
// A nil ref leaves the state Empty.
func (s *State) Select(ref *Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held != nil {
		s.paint(s.held.ID, s.palette.Resting(s.held.Side))
		s.held = nil
	}
	if ref == nil {
		return
	}
	r := *ref
	s.held = &r
	s.paint(r.ID, s.palette.Selected)
}

func (s *State) Clear() { s.Select(nil) }

func (s *State) Current() (Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		return Ref{}, false
	}
	return *s.held, true
}

func (s *State) paint(id string, c color.RGBA) {
	if s.painter == nil {
		return
	}
	s.painter.Paint(id, c)
}
