package offer

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/user"
)

// Offer is an internship offered by a monitor's company. Students only see it once a manager validated it.
type Offer struct {
	ID          string              `json:"id"`
	CreatorID   string              `json:"creator_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Department  string              `json:"department"`
	Address     string              `json:"address"`
	Salary      float64             `json:"salary"`
	Validity    curriculum.Validity `json:"validity"`
	CreatedAt   time.Time           `json:"created_at"` // UTC
}

// NewOffer contains information needed to create a new Offer.
type NewOffer struct {
	CreatorID   string  `json:"creator_id" validate:"required"`
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description string  `json:"description" validate:"required,notblank"`
	Department  string  `json:"department" validate:"required,notblank,max=100"`
	Address     string  `json:"address" validate:"required,notblank,max=255"`
	Salary      float64 `json:"salary" validate:"gte=0"`
}

func (no *NewOffer) Validate(validate *validator.Validate) error {
	no.Title = core.CleanString(no.Title)
	no.Description = core.CleanString(no.Description)
	no.Department = core.CleanString(no.Department)
	no.Address = core.CleanString(no.Address)
	return validate.Struct(no)
}

// QueryFilter applies AND operation on its non-empty fields.
type QueryFilter struct {
	CreatorID  string
	Department string // case insensitive
	Validity   *curriculum.Validity
}

// Validation is a manager's decision on a pending Offer.
type Validation struct {
	Valid *bool `json:"valid" validate:"required"`
}

// Status is where an Application stands in the hiring process.
type Status int

const (
	StatusCVSent        Status = iota // the principal curriculum was sent to the offer creator
	StatusAwaitingReply               // an interview is scheduled
	StatusAccepted
	StatusRefused
)

var statusNames = map[Status]string{
	StatusCVSent:        "cv_sent",
	StatusAwaitingReply: "awaiting_reply",
	StatusAccepted:      "accepted",
	StatusRefused:       "refused",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Decided reports whether the offer creator already answered.
func (s Status) Decided() bool {
	return s == StatusAccepted || s == StatusRefused
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, errors.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseStatus(s string) (Status, error) {
	s = core.CleanString(s, true /* lower */)
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return StatusCVSent, errors.Errorf("invalid status %q", s)
}

// Application links a student, through their principal curriculum at the time, to an Offer.
type Application struct {
	ID            string     `json:"id"`
	OfferID       string     `json:"offer_id"`
	StudentID     string     `json:"student_id"`
	CurriculumID  string     `json:"curriculum_id"`
	Status        Status     `json:"status"`
	InterviewDate *time.Time `json:"interview_date"` // UTC
	CreatedAt     time.Time  `json:"created_at"`     // UTC
}

// ApplicationFilter applies AND operation on its non-empty fields.
type ApplicationFilter struct {
	OfferID        string
	OfferCreatorID string
	StudentID      string
	Status         *Status
}

// Applicant is an Application as the offer creator sees it.
type Applicant struct {
	Application Application           `json:"application"`
	OfferTitle  string                `json:"offer_title"`
	Student     user.User             `json:"student"`
	Curriculum  curriculum.Curriculum `json:"curriculum"` // without Data
}

// Interview schedules the interview of an Application.
type Interview struct {
	Date *time.Time `json:"date" validate:"required"`
}

// Decision is the offer creator's answer to an Application.
type Decision struct {
	Accepted *bool `json:"accepted" validate:"required"`
}
