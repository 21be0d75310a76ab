package curriculum

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/user"
)

var (
	ErrNotFound       = errors.New("curriculum not found")
	ErrAlreadyTreated = errors.New("curriculum already treated")
	ErrInUse          = errors.New("the principal curriculum cannot be deleted")

	// OrderingFields are the fields curricula can be ordered by.
	OrderingFields = []string{"created_at", "name"}
)

type (
	Repository interface {
		CreateCurriculum(ctx context.Context, cv Curriculum) (Curriculum, error)
		GetCurriculum(ctx context.Context, id string) (Curriculum, error)
		// QueryCurriculums lists curricula without their Data, oldest first unless ordering is given.
		QueryCurriculums(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Curriculum, error)
		// ReviewCurriculum sets the validity of a pending curriculum; ErrAlreadyTreated if it is not pending.
		ReviewCurriculum(ctx context.Context, id string, validity Validity) error
		DeleteCurriculum(ctx context.Context, id string) error
		// GetPrincipalID returns "" when the student has no principal curriculum.
		GetPrincipalID(ctx context.Context, studentID string) (string, error)
		SetPrincipalID(ctx context.Context, studentID, curriculumID string) error
	}

	// StudentFinder looks students up for notifications.
	StudentFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		Upload(ctx context.Context, nc NewCurriculum) (Curriculum, error)
		GetByID(ctx context.Context, id string) (Curriculum, error)
		StudentCurriculums(ctx context.Context, studentID string) (StudentCurriculums, error)
		SetPrincipal(ctx context.Context, studentID, curriculumID string) error
		Validate(ctx context.Context, id string, valid bool) error
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Curriculum, error)
		Delete(ctx context.Context, id string) error
		// StudentsWithValidCurriculum lists the students having at least one valid curriculum, oldest curriculum first.
		StudentsWithValidCurriculum(ctx context.Context) ([]user.User, error)
	}

	service struct {
		repo     Repository
		students StudentFinder
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, students StudentFinder, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func (svc *service) Upload(ctx context.Context, nc NewCurriculum) (Curriculum, error) {
	cv := Curriculum{
		StudentID:   nc.StudentID,
		Name:        nc.Name,
		ContentType: nc.ContentType,
		Data:        nc.Data,
		Validity:    Pending,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateCurriculum(ctx, cv)
}

func (svc *service) GetByID(ctx context.Context, id string) (Curriculum, error) {
	return svc.repo.GetCurriculum(ctx, id)
}

func (svc *service) StudentCurriculums(ctx context.Context, studentID string) (StudentCurriculums, error) {
	cvs, err := svc.repo.QueryCurriculums(ctx, QueryFilter{StudentID: studentID}, nil)
	if err != nil {
		return StudentCurriculums{}, errors.Wrap(err, "querying student curricula")
	}
	principalID, err := svc.repo.GetPrincipalID(ctx, studentID)
	if err != nil {
		return StudentCurriculums{}, errors.Wrap(err, "getting principal curriculum")
	}

	sc := StudentCurriculums{CurriculumList: Rank(cvs)}
	if principalID != "" {
		// the principal is only reported while it is part of the list
		if cv, ok := sc.Find(principalID); ok {
			sc.Principal = &cv
		}
	}
	return sc, nil
}

func (svc *service) SetPrincipal(ctx context.Context, studentID, curriculumID string) error {
	cv, err := svc.repo.GetCurriculum(ctx, curriculumID)
	if err != nil {
		return err
	}
	if cv.StudentID != studentID {
		return ErrNotFound
	}
	if !Eligible(cv) {
		return ErrNotEligible
	}
	return svc.repo.SetPrincipalID(ctx, studentID, curriculumID)
}

func (svc *service) Validate(ctx context.Context, id string, valid bool) error {
	validity := Invalid
	if valid {
		validity = Valid
	}
	if err := svc.repo.ReviewCurriculum(ctx, id, validity); err != nil {
		return err
	}

	cv, err := svc.repo.GetCurriculum(ctx, id)
	if err != nil {
		return errors.Wrap(err, "getting reviewed curriculum")
	}
	svc.notifyReviewed(ctx, cv)
	return nil
}

type reviewedData struct {
	StudentName    string
	CurriculumName string
	Valid          bool
}

// notifyReviewed emails the student about the decision. Failures are only logged.
func (svc *service) notifyReviewed(ctx context.Context, cv Curriculum) {
	student, err := svc.students.GetByID(ctx, cv.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("curriculum %s reviewed: student lookup failed: %v", cv.ID, err), err)
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Votre C.V. a été traité",
		TemplateName: "curriculum_reviewed",
		TemplateData: reviewedData{
			StudentName:    student.Name,
			CurriculumName: cv.Name,
			Valid:          cv.Validity == Valid,
		},
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Curriculum, error) {
	return svc.repo.QueryCurriculums(ctx, filter, ordering)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	cv, err := svc.repo.GetCurriculum(ctx, id)
	if err != nil {
		return err
	}
	principalID, err := svc.repo.GetPrincipalID(ctx, cv.StudentID)
	if err != nil {
		return errors.Wrap(err, "getting principal curriculum")
	}
	if principalID == cv.ID {
		return ErrInUse
	}
	return svc.repo.DeleteCurriculum(ctx, id)
}

func (svc *service) StudentsWithValidCurriculum(ctx context.Context) ([]user.User, error) {
	valid := Valid
	cvs, err := svc.repo.QueryCurriculums(ctx, QueryFilter{Validity: &valid}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying valid curricula")
	}

	seen := make(map[string]bool)
	students := make([]user.User, 0)
	for _, cv := range cvs {
		if seen[cv.StudentID] {
			continue
		}
		seen[cv.StudentID] = true
		student, err := svc.students.GetByID(ctx, cv.StudentID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting student %s", cv.StudentID)
		}
		students = append(students, student)
	}
	return students, nil
}
