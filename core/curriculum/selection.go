package curriculum

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotEligible       = errors.New("only a valid curriculum can be principal")
	ErrNotInList         = errors.New("curriculum does not belong to the student")
	ErrAssignmentRefused = errors.New("principal curriculum assignment refused")
)

// PrincipalAssigner asks the backend to mark a curriculum as a student's principal one.
type PrincipalAssigner interface {
	SetPrincipalCurriculum(ctx context.Context, studentID, curriculumID string) (bool, error)
}

// SelectAsPrincipal marks cv as the principal curriculum of set once the backend acknowledged it.
// Exactly one request is made when the preconditions hold; set is left untouched on any failure.
func SelectAsPrincipal(ctx context.Context, studentID string, set *StudentCurriculums, cv Curriculum, assigner PrincipalAssigner) error {
	if !Eligible(cv) {
		return ErrNotEligible
	}
	listed, ok := set.Find(cv.ID)
	if !ok {
		return ErrNotInList
	}

	success, err := assigner.SetPrincipalCurriculum(ctx, studentID, cv.ID)
	if err != nil {
		return errors.Wrap(err, "setting principal curriculum")
	}
	if !success {
		return ErrAssignmentRefused
	}
	set.Principal = &listed
	return nil
}
