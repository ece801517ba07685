package puzzle

// Outcome is the result of a tap.
type Outcome int

const (
	Rejected Outcome = iota
	Accepted
	Completed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Completed:
		return "completed"
	default:
		return "rejected"
	}
}

// PathState is the accepted prefix {0, ..., Accepted-1} of the path.
type PathState struct {
	Accepted int `json:"accepted"`
}

// Indices returns the accepted target indices in order.
func (p PathState) Indices() []int {
	out := make([]int, p.Accepted)
	for i := range out {
		out[i] = i
	}
	return out
}

// Validator checks taps against one layout. The first character is accepted
// on creation. Accepted indices are never removed.
type Validator struct {
	layout *Layout
	state  PathState
}

// NewValidator starts a play-through of l.
func NewValidator(l *Layout) *Validator {
	return &Validator{layout: l, state: PathState{Accepted: 1}}
}

// Layout returns the grid being played.
func (v *Validator) Layout() *Layout { return v.layout }

// State returns the current accepted prefix.
func (v *Validator) State() PathState { return v.state }

// Done reports whether every character has been accepted.
func (v *Validator) Done() bool { return v.state.Accepted == v.layout.Len() }

// Tail returns the coordinate of the last accepted character.
func (v *Validator) Tail() Coord {
	c, _ := v.layout.PathCoord(v.state.Accepted - 1)
	return c
}

// Next returns the coordinate the player must tap next, or false when done.
func (v *Validator) Next() (Coord, bool) {
	return v.layout.PathCoord(v.state.Accepted)
}

// Tap evaluates a tap at c. Rejected taps leave the state untouched.
func (v *Validator) Tap(c Coord) (Outcome, PathState) {
	cell, ok := v.layout.At(c)
	next := v.state.Accepted
	if !ok || !cell.IsTarget || cell.TargetIndex != next {
		return Rejected, v.state
	}
	// The right character can still be out of reach of the tail.
	if !v.Tail().Adjacent(c) {
		return Rejected, v.state
	}

	v.state.Accepted = next + 1
	if v.Done() {
		return Completed, v.state
	}
	return Accepted, v.state
}
