package curriculum

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/stage/core"
)

// Validity is the review status of a Curriculum, decided by a manager.
type Validity int

const (
	Pending Validity = iota // not reviewed yet
	Valid
	Invalid
)

var validityNames = map[Validity]string{
	Pending: "pending",
	Valid:   "valid",
	Invalid: "invalid",
}

func (v Validity) String() string {
	if name, ok := validityNames[v]; ok {
		return name
	}
	return "unknown"
}

func (v Validity) MarshalText() ([]byte, error) {
	if _, ok := validityNames[v]; !ok {
		return nil, errors.Errorf("invalid validity %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *Validity) UnmarshalText(text []byte) error {
	parsed, err := ParseValidity(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func ParseValidity(s string) (Validity, error) {
	switch core.CleanString(s, true /* lower */) {
	case "pending":
		return Pending, nil
	case "valid":
		return Valid, nil
	case "invalid":
		return Invalid, nil
	}
	return Pending, errors.Errorf("invalid validity %q", s)
}

// ValidityOf maps a reviewer decision (nil: not reviewed) to a Validity.
func ValidityOf(isValid *bool) Validity {
	switch {
	case isValid == nil:
		return Pending
	case *isValid:
		return Valid
	default:
		return Invalid
	}
}

// Bool is the inverse of ValidityOf.
func (v Validity) Bool() *bool {
	var b bool
	switch v {
	case Valid:
		b = true
	case Invalid:
		b = false
	default:
		return nil
	}
	return &b
}

type Curriculum struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data,omitempty"`
	Validity    Validity  `json:"validity"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// StudentCurriculums are all the curricula of a student along with their principal (default) one.
type StudentCurriculums struct {
	Principal      *Curriculum  `json:"principal"`
	CurriculumList []Curriculum `json:"curriculum_list"`
}

// IsPrincipal reports whether cv is the principal curriculum.
func (sc *StudentCurriculums) IsPrincipal(cv Curriculum) bool {
	return sc.Principal != nil && sc.Principal.ID == cv.ID
}

// Find returns the curriculum with the given ID from CurriculumList.
func (sc *StudentCurriculums) Find(id string) (Curriculum, bool) {
	for _, cv := range sc.CurriculumList {
		if cv.ID == id {
			return cv, true
		}
	}
	return Curriculum{}, false
}

// NewCurriculum contains information needed to upload a new Curriculum.
type NewCurriculum struct {
	StudentID   string `json:"student_id" validate:"required"`
	Name        string `json:"name" validate:"required,notblank,max=255"`
	ContentType string `json:"content_type" validate:"required,oneof=application/pdf"`
	Data        []byte `json:"data" validate:"required"`
}

func (nc *NewCurriculum) Validate(validate *validator.Validate, maxSize int64) error {
	nc.Name = core.CleanString(nc.Name)
	nc.ContentType = core.CleanString(nc.ContentType, true /* lower */)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if maxSize > 0 && int64(len(nc.Data)) > maxSize {
		return core.NewFieldError("data", "file is too large")
	}
	return nil
}

// QueryFilter applies AND operation on its non-empty fields.
type QueryFilter struct {
	StudentID string
	Validity  *Validity
}

// Validation is a manager's decision on a pending Curriculum.
type Validation struct {
	Valid *bool `json:"valid" validate:"required"`
}
