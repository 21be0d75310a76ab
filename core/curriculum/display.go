package curriculum

// DisplayState is how a curriculum row is presented in a student's list.
type DisplayState int

const (
	StateIsPrincipal DisplayState = iota
	StateSelectable
	StatePending
	StateRejected
)

var displayStateNames = [...]string{
	StateIsPrincipal: "is-principal",
	StateSelectable:  "selectable",
	StatePending:     "pending",
	StateRejected:    "rejected",
}

func (s DisplayState) String() string {
	if s >= 0 && int(s) < len(displayStateNames) {
		return displayStateNames[s]
	}
	return "unknown"
}

// Interactive reports whether the row offers an action (selecting it as principal).
func (s DisplayState) Interactive() bool {
	return s == StateSelectable
}

// IconFor derives the display state of cv from its validity and whether it is the principal one.
func IconFor(cv Curriculum, set StudentCurriculums) DisplayState {
	if set.IsPrincipal(cv) {
		return StateIsPrincipal
	}
	switch cv.Validity {
	case Valid:
		return StateSelectable
	case Pending:
		return StatePending
	default:
		return StateRejected
	}
}
