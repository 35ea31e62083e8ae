package selection

import (
	"image/color"
	"testing"

	"github.com/park285/cheese-board-client/internal/domain"
)

type paintCall struct {
	id string
	c  color.RGBA
}

type recordingPainter struct {
	calls  []paintCall
	colors map[string]color.RGBA
	gone   map[string]bool
}

func newRecordingPainter() *recordingPainter {
	return &recordingPainter{colors: map[string]color.RGBA{}, gone: map[string]bool{}}
}

func (p *recordingPainter) Paint(id string, c color.RGBA) bool {
	if p.gone[id] {
		return false
	}
	p.calls = append(p.calls, paintCall{id: id, c: c})
	p.colors[id] = c
	return true
}

func TestSelectAThenBRestoresA(t *testing.T) {
	p := newRecordingPainter()
	pal := DefaultPalette()
	s := New(p, pal)

	a := &Ref{ID: "a", Side: domain.Light}
	b := &Ref{ID: "b", Side: domain.Dark}
	s.Select(a)
	s.Select(b)

	if p.colors["a"] != pal.Light {
		t.Fatalf("a should be restored to light resting color, got %v", p.colors["a"])
	}
	if p.colors["b"] != pal.Selected {
		t.Fatalf("b should be highlighted, got %v", p.colors["b"])
	}
	cur, ok := s.Current()
	if !ok || cur.ID != "b" {
		t.Fatalf("expected b held, got %v %v", cur, ok)
	}
}

func TestSelectNoneRestoresOnlyHeld(t *testing.T) {
	p := newRecordingPainter()
	pal := DefaultPalette()
	s := New(p, pal)

	s.Select(&Ref{ID: "a", Side: domain.Light})
	s.Select(&Ref{ID: "b", Side: domain.Dark})
	before := len(p.calls)
	s.Select(nil)

	if got := p.calls[before:]; len(got) != 1 || got[0].id != "b" || got[0].c != pal.Dark {
		t.Fatalf("expected a single restore of b to dark, got %+v", got)
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("expected empty selection")
	}
}

func TestReselectSameIsIdempotent(t *testing.T) {
	p := newRecordingPainter()
	pal := DefaultPalette()
	s := New(p, pal)

	a := &Ref{ID: "a", Side: domain.Dark}
	s.Select(a)
	s.Select(a)
	if p.colors["a"] != pal.Selected {
		t.Fatalf("a should remain highlighted, got %v", p.colors["a"])
	}
	cur, ok := s.Current()
	if !ok || cur.ID != "a" {
		t.Fatalf("expected a held")
	}
}

func TestSelectOnVanishedEntity(t *testing.T) {
	p := newRecordingPainter()
	s := New(p, DefaultPalette())
	s.Select(&Ref{ID: "old", Side: domain.Light})
	p.gone["old"] = true // removed by a redraw
	s.Select(&Ref{ID: "new", Side: domain.Light})
	cur, ok := s.Current()
	if !ok || cur.ID != "new" {
		t.Fatalf("expected new held, got %v", cur)
	}
}

func TestClearOnEmptyIsNoop(t *testing.T) {
	p := newRecordingPainter()
	s := New(p, DefaultPalette())
	s.Clear()
	if len(p.calls) != 0 {
		t.Fatalf("expected no paint calls, got %d", len(p.calls))
	}
}
