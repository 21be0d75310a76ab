// Package offer manages internship offers and the applications students send to them with their principal curriculum.
package offer

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/user"
)

var (
	ErrNotFound            = errors.New("offer not found")
	ErrAlreadyTreated      = errors.New("offer already treated")
	ErrNotOpen             = errors.New("offer is not open for applications")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyApplied      = errors.New("already applied to this offer")
	ErrNoPrincipal         = errors.New("a principal curriculum is required to apply")
	ErrAlreadyDecided      = errors.New("application already decided")
	ErrDateNotValid        = errors.New("interview date must be in the future")

	// OrderingFields are the fields offers can be ordered by.
	OrderingFields = []string{"created_at", "title", "department", "salary"}
)

type (
	Repository interface {
		CreateOffer(ctx context.Context, o Offer) (Offer, error)
		GetOffer(ctx context.Context, id string) (Offer, error)
		// QueryOffers lists offers oldest first unless ordering is given.
		QueryOffers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Offer, error)
		// ReviewOffer sets the validity of a pending offer; ErrAlreadyTreated if it is not pending.
		ReviewOffer(ctx context.Context, id string, validity curriculum.Validity) error

		// CreateApplication fails with ErrAlreadyApplied when the student already applied to the offer.
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		// QueryApplications lists applications oldest first.
		QueryApplications(ctx context.Context, filter ApplicationFilter) ([]Application, error)
		// UpdateApplication saves the Status & InterviewDate of app.
		UpdateApplication(ctx context.Context, app Application) error
	}

	// CurriculumReader gives access to the curricula sent along applications.
	CurriculumReader interface {
		GetByID(ctx context.Context, id string) (curriculum.Curriculum, error)
		StudentCurriculums(ctx context.Context, studentID string) (curriculum.StudentCurriculums, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		Create(ctx context.Context, no NewOffer) (Offer, error)
		GetByID(ctx context.Context, id string) (Offer, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Offer, error)
		Validate(ctx context.Context, id string, valid bool) error

		Apply(ctx context.Context, studentID, offerID string) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		StudentApplications(ctx context.Context, studentID string) ([]Application, error)
		// Applicants lists the applications to the offers of creatorID, or to all offers when it is empty.
		Applicants(ctx context.Context, creatorID string) ([]Applicant, error)
		SetInterviewDate(ctx context.Context, applicationID string, date time.Time) (Application, error)
		Decide(ctx context.Context, applicationID string, accepted bool) (Application, error)
	}

	service struct {
		repo     Repository
		cvs      CurriculumReader
		users    UserFinder
		mailSvc  core.EmailService
		logger   core.Logger
		timeFunc func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, cvs CurriculumReader, users UserFinder, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:     repo,
		cvs:      cvs,
		users:    users,
		mailSvc:  mailSvc,
		logger:   logger,
		timeFunc: time.Now,
	}
}

func (svc *service) Create(ctx context.Context, no NewOffer) (Offer, error) {
	o := Offer{
		CreatorID:   no.CreatorID,
		Title:       no.Title,
		Description: no.Description,
		Department:  no.Department,
		Address:     no.Address,
		Salary:      no.Salary,
		Validity:    curriculum.Pending,
		CreatedAt:   svc.timeFunc().UTC(),
	}
	return svc.repo.CreateOffer(ctx, o)
}

func (svc *service) GetByID(ctx context.Context, id string) (Offer, error) {
	return svc.repo.GetOffer(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Offer, error) {
	return svc.repo.QueryOffers(ctx, filter, ordering)
}

func (svc *service) Validate(ctx context.Context, id string, valid bool) error {
	validity := curriculum.Invalid
	if valid {
		validity = curriculum.Valid
	}
	return svc.repo.ReviewOffer(ctx, id, validity)
}

func (svc *service) Apply(ctx context.Context, studentID, offerID string) (Application, error) {
	o, err := svc.repo.GetOffer(ctx, offerID)
	if err != nil {
		return Application{}, err
	}
	if o.Validity != curriculum.Valid {
		return Application{}, ErrNotOpen
	}

	sc, err := svc.cvs.StudentCurriculums(ctx, studentID)
	if err != nil {
		return Application{}, errors.Wrap(err, "getting student curricula")
	}
	if sc.Principal == nil || !curriculum.Eligible(*sc.Principal) {
		return Application{}, ErrNoPrincipal
	}

	app, err := svc.repo.CreateApplication(ctx, Application{
		OfferID:      o.ID,
		StudentID:    studentID,
		CurriculumID: sc.Principal.ID,
		Status:       StatusCVSent,
		CreatedAt:    svc.timeFunc().UTC(),
	})
	if err != nil {
		return Application{}, err
	}
	svc.notifyApplied(ctx, o, app)
	return app, nil
}

func (svc *service) GetApplication(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplication(ctx, id)
}

func (svc *service) StudentApplications(ctx context.Context, studentID string) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, ApplicationFilter{StudentID: studentID})
}

func (svc *service) Applicants(ctx context.Context, creatorID string) ([]Applicant, error) {
	apps, err := svc.repo.QueryApplications(ctx, ApplicationFilter{OfferCreatorID: creatorID})
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}

	offers := make(map[string]Offer)
	applicants := make([]Applicant, 0, len(apps))
	for _, app := range apps {
		o, ok := offers[app.OfferID]
		if !ok {
			if o, err = svc.repo.GetOffer(ctx, app.OfferID); err != nil {
				return nil, errors.Wrapf(err, "getting offer %s", app.OfferID)
			}
			offers[o.ID] = o
		}
		student, err := svc.users.GetByID(ctx, app.StudentID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting student %s", app.StudentID)
		}
		cv, err := svc.cvs.GetByID(ctx, app.CurriculumID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting curriculum %s", app.CurriculumID)
		}
		cv.Data = nil

		applicants = append(applicants, Applicant{
			Application: app,
			OfferTitle:  o.Title,
			Student:     student,
			Curriculum:  cv,
		})
	}
	return applicants, nil
}

func (svc *service) SetInterviewDate(ctx context.Context, applicationID string, date time.Time) (Application, error) {
	if !date.After(svc.timeFunc()) {
		return Application{}, ErrDateNotValid
	}
	app, err := svc.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if app.Status.Decided() {
		return Application{}, ErrAlreadyDecided
	}

	date = date.UTC().Truncate(time.Second)
	app.InterviewDate = &date
	app.Status = StatusAwaitingReply
	if err = svc.repo.UpdateApplication(ctx, app); err != nil {
		return Application{}, errors.Wrap(err, "updating application")
	}
	svc.notifyInterview(ctx, app)
	return app, nil
}

func (svc *service) Decide(ctx context.Context, applicationID string, accepted bool) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}
	if app.Status.Decided() {
		return Application{}, ErrAlreadyDecided
	}

	app.Status = StatusRefused
	if accepted {
		app.Status = StatusAccepted
	}
	if err = svc.repo.UpdateApplication(ctx, app); err != nil {
		return Application{}, errors.Wrap(err, "updating application")
	}
	return app, nil
}

type (
	appliedData struct {
		CreatorName string
		StudentName string
		OfferTitle  string
	}

	interviewData struct {
		StudentName string
		OfferTitle  string
		Date        string
	}
)

// notifyApplied emails the offer creator about a new application. Failures are only logged.
func (svc *service) notifyApplied(ctx context.Context, o Offer, app Application) {
	creator, err := svc.users.GetByID(ctx, o.CreatorID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("application %s: creator lookup failed: %v", app.ID, err), err)
		return
	}
	student, err := svc.users.GetByID(ctx, app.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("application %s: student lookup failed: %v", app.ID, err), err)
		return
	}
	if creator.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: creator.Name, Address: creator.Email}},
		Subject:      "Nouvelle candidature",
		TemplateName: "offer_application",
		TemplateData: appliedData{
			CreatorName: creator.Name,
			StudentName: student.Name,
			OfferTitle:  o.Title,
		},
	})
}

// notifyInterview emails the student the date of their interview. Failures are only logged.
func (svc *service) notifyInterview(ctx context.Context, app Application) {
	o, err := svc.repo.GetOffer(ctx, app.OfferID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("application %s: offer lookup failed: %v", app.ID, err), err)
		return
	}
	student, err := svc.users.GetByID(ctx, app.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("application %s: student lookup failed: %v", app.ID, err), err)
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Entrevue planifiée",
		TemplateName: "interview_scheduled",
		TemplateData: interviewData{
			StudentName: student.Name,
			OfferTitle:  o.Title,
			Date:        app.InterviewDate.Format("02/01/2006 15:04 MST"),
		},
	})
}
