package desktop

// pointer turns raw button and cursor callbacks into clicks and drags.
// Left drag rotates, right drag pans.
type pointer struct {
	x, y     float64
	px, py   float64 // cursor at press
	known    bool
	held     Button
	moved    bool
	clickEps float64
}

func newPointer() *pointer { return &pointer{clickEps: 3} }

// press starts a drag with the given role.
func (p *pointer) press(b Button) {
	p.held = b
	p.px, p.py = p.x, p.y
	p.moved = false
}

// release ends the drag and reports whether it was a click (no real motion).
func (p *pointer) release(b Button) bool {
	if p.held != b {
		return false
	}
	p.held = ButtonNone
	return !p.moved
}

// move records the cursor and returns the drag event, if any.
func (p *pointer) move(x, y float64, windowHeight int) (Event, bool) {
	if !p.known {
		p.x, p.y, p.known = x, y, true
		return Event{}, false
	}
	dx, dy := x-p.x, y-p.y
	p.x, p.y = x, y
	if p.held == ButtonNone || (dx == 0 && dy == 0) {
		return Event{}, false
	}
	if ox, oy := x-p.px, y-p.py; ox*ox+oy*oy >= p.clickEps*p.clickEps {
		p.moved = true
	}
	return Event{Type: EventDrag, X: dx, Y: dy, Height: windowHeight, Button: p.held}, true
}
