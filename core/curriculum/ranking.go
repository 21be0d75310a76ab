package curriculum

import "sort"

// rankKey orders validity classes: valid, then pending, then invalid.
func rankKey(v Validity) int {
	switch v {
	case Valid:
		return 0
	case Pending:
		return 1
	default:
		return 2
	}
}

// Rank returns a copy of cvs grouped by validity (valid, pending, invalid).
// The sort is stable: curricula of the same class keep their input order.
func Rank(cvs []Curriculum) []Curriculum {
	ranked := make([]Curriculum, len(cvs))
	copy(ranked, cvs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankKey(ranked[i].Validity) < rankKey(ranked[j].Validity)
	})
	return ranked
}

// Eligible reports whether cv can become a principal curriculum.
func Eligible(cv Curriculum) bool {
	return cv.Validity == Valid
}
