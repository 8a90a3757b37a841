package drag

// Grab routes pointer events to a single gesture. While it is held, events
// from any other pointer are to be dropped, whatever lies under them.
type Grab struct {
	pointerID int
	held      bool
}

// Acquire takes the grab for pointerID. It fails while the grab is held.
func (g *Grab) Acquire(pointerID int) bool {
	if g.held {
		return false
	}
	g.pointerID, g.held = pointerID, true
	return true
}

// Release frees the grab if pointerID holds it.
func (g *Grab) Release(pointerID int) bool {
	if !g.Holds(pointerID) {
		return false
	}
	*g = Grab{}
	return true
}

// Reset frees the grab whoever holds it.
func (g *Grab) Reset() {
	*g = Grab{}
}

// Holds reports whether pointerID holds the grab.
func (g *Grab) Holds(pointerID int) bool {
	return g.held && g.pointerID == pointerID
}

func (g *Grab) Held() bool {
	return g.held
}
