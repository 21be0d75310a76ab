package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIconFor(t *testing.T) {
	valid := Curriculum{ID: "v", Validity: Valid}
	pending := Curriculum{ID: "p", Validity: Pending}
	invalid := Curriculum{ID: "i", Validity: Invalid}

	withPrincipal := func(p Curriculum) StudentCurriculums {
		return StudentCurriculums{Principal: &p, CurriculumList: []Curriculum{valid, pending, invalid}}
	}

	tests := []struct {
		name string
		cv   Curriculum
		set  StudentCurriculums
		want DisplayState
	}{
		{name: "valid, principal", cv: valid, set: withPrincipal(valid), want: StateIsPrincipal},
		{name: "valid, not principal", cv: valid, set: withPrincipal(Curriculum{ID: "other", Validity: Valid}), want: StateSelectable},
		{name: "valid, no principal", cv: valid, set: StudentCurriculums{}, want: StateSelectable},
		{name: "pending", cv: pending, set: withPrincipal(valid), want: StatePending},
		{name: "invalid", cv: invalid, set: withPrincipal(valid), want: StateRejected},
		{name: "invalid, no principal", cv: invalid, want: StateRejected},
		// principal flag wins over validity
		{name: "invalid, principal", cv: invalid, set: withPrincipal(invalid), want: StateIsPrincipal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IconFor(tt.cv, tt.set))
		})
	}
}

func TestDisplayState(t *testing.T) {
	tests := []struct {
		state           DisplayState
		wantName        string
		wantInteractive bool
	}{
		{state: StateIsPrincipal, wantName: "is-principal"},
		{state: StateSelectable, wantName: "selectable", wantInteractive: true},
		{state: StatePending, wantName: "pending"},
		{state: StateRejected, wantName: "rejected"},
		{state: DisplayState(42), wantName: "unknown"},
		{state: DisplayState(-1), wantName: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.state.String())
			assert.Equal(t, tt.wantInteractive, tt.state.Interactive())
		})
	}
}
