package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
	"github.com/trezcool/stage/core/offer"
)

type offerRow struct {
	ID          string    `db:"id"`
	CreatorID   string    `db:"creator_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Department  string    `db:"department"`
	Address     string    `db:"address"`
	Salary      float64   `db:"salary"`
	IsValid     null.Bool `db:"is_valid"` // NULL: pending
	CreatedAt   time.Time `db:"created_at"`
}

func newOfferRow(o offer.Offer) offerRow {
	return offerRow{
		ID:          o.ID,
		CreatorID:   o.CreatorID,
		Title:       o.Title,
		Description: o.Description,
		Department:  o.Department,
		Address:     o.Address,
		Salary:      o.Salary,
		IsValid:     null.BoolFromPtr(o.Validity.Bool()),
		CreatedAt:   o.CreatedAt,
	}
}

func (row offerRow) toOffer() offer.Offer {
	return offer.Offer{
		ID:          row.ID,
		CreatorID:   row.CreatorID,
		Title:       row.Title,
		Description: row.Description,
		Department:  row.Department,
		Address:     row.Address,
		Salary:      row.Salary,
		Validity:    curriculum.ValidityOf(row.IsValid.Ptr()),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type applicationRow struct {
	ID            string    `db:"id"`
	OfferID       string    `db:"offer_id"`
	StudentID     string    `db:"student_id"`
	CurriculumID  string    `db:"curriculum_id"`
	Status        string    `db:"status"`
	InterviewDate null.Time `db:"interview_date"`
	CreatedAt     time.Time `db:"created_at"`
}

func newApplicationRow(app offer.Application) applicationRow {
	return applicationRow{
		ID:            app.ID,
		OfferID:       app.OfferID,
		StudentID:     app.StudentID,
		CurriculumID:  app.CurriculumID,
		Status:        app.Status.String(),
		InterviewDate: null.TimeFromPtr(app.InterviewDate),
		CreatedAt:     app.CreatedAt,
	}
}

func (row applicationRow) toApplication() (offer.Application, error) {
	status, err := offer.ParseStatus(row.Status)
	if err != nil {
		return offer.Application{}, errors.Wrapf(err, "application %s", row.ID)
	}
	app := offer.Application{
		ID:           row.ID,
		OfferID:      row.OfferID,
		StudentID:    row.StudentID,
		CurriculumID: row.CurriculumID,
		Status:       status,
		CreatedAt:    row.CreatedAt.UTC(),
	}
	if row.InterviewDate.Valid {
		date := row.InterviewDate.Time.UTC()
		app.InterviewDate = &date
	}
	return app, nil
}

const (
	offerColumns       = `id, creator_id, title, description, department, address, salary, is_valid, created_at`
	applicationColumns = `a.id, a.offer_id, a.student_id, a.curriculum_id, a.status, a.interview_date, a.created_at`
)

type offerRepository struct {
	db *sqlx.DB
}

var _ offer.Repository = (*offerRepository)(nil) // interface compliance check

func NewOfferRepository(db *sqlx.DB) offer.Repository {
	return &offerRepository{db: db}
}

func (repo *offerRepository) CreateOffer(ctx context.Context, o offer.Offer) (offer.Offer, error) {
	o.ID = uuid.New().String()
	q := `INSERT INTO offer (` + offerColumns + `)
		VALUES (:id, :creator_id, :title, :description, :department, :address, :salary, :is_valid, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newOfferRow(o)); err != nil {
		return offer.Offer{}, errors.Wrap(err, "inserting offer")
	}
	return o, nil
}

func (repo *offerRepository) GetOffer(ctx context.Context, id string) (offer.Offer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return offer.Offer{}, offer.ErrNotFound
	}
	var row offerRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+offerColumns+` FROM offer WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return offer.Offer{}, offer.ErrNotFound
		}
		return offer.Offer{}, errors.Wrap(err, "selecting offer")
	}
	return row.toOffer(), nil
}

func (repo *offerRepository) QueryOffers(ctx context.Context, filter offer.QueryFilter, ordering []core.DBOrdering) ([]offer.Offer, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CreatorID != "" {
		if _, err := uuid.Parse(filter.CreatorID); err != nil {
			return []offer.Offer{}, nil
		}
		args = append(args, filter.CreatorID)
		conds = append(conds, fmt.Sprintf("creator_id = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conds = append(conds, fmt.Sprintf("lower(department) = lower($%d)", len(args)))
	}
	if filter.Validity != nil {
		if b := filter.Validity.Bool(); b != nil {
			args = append(args, *b)
			conds = append(conds, fmt.Sprintf("is_valid = $%d", len(args)))
		} else {
			conds = append(conds, "is_valid IS NULL")
		}
	}

	q := `SELECT ` + offerColumns + ` FROM offer`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	orderBy := "created_at ASC"
	if len(ordering) > 0 {
		orderBy = core.JoinOrderings(caseInsensitive(ordering, "title", "department")) + ", created_at ASC"
	}
	q += " ORDER BY " + orderBy

	var rows []offerRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting offers")
	}
	offers := make([]offer.Offer, 0, len(rows))
	for _, row := range rows {
		offers = append(offers, row.toOffer())
	}
	return offers, nil
}

func (repo *offerRepository) ReviewOffer(ctx context.Context, id string, validity curriculum.Validity) error {
	isValid := validity.Bool()
	if isValid == nil {
		return errors.New("a review must be valid or invalid")
	}
	if _, err := uuid.Parse(id); err != nil {
		return offer.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx, `UPDATE offer SET is_valid = $2 WHERE id = $1 AND is_valid IS NULL`, id, *isValid)
	if err != nil {
		return errors.Wrap(err, "updating offer")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating offer")
	}
	if n == 0 {
		if _, err = repo.GetOffer(ctx, id); err != nil {
			return err
		}
		return offer.ErrAlreadyTreated
	}
	return nil
}

func (repo *offerRepository) CreateApplication(ctx context.Context, app offer.Application) (offer.Application, error) {
	app.ID = uuid.New().String()
	q := `INSERT INTO offer_application (id, offer_id, student_id, curriculum_id, status, interview_date, created_at)
		VALUES (:id, :offer_id, :student_id, :curriculum_id, :status, :interview_date, :created_at)
		ON CONFLICT (offer_id, student_id) DO NOTHING`
	res, err := repo.db.NamedExecContext(ctx, q, newApplicationRow(app))
	if err != nil {
		return offer.Application{}, errors.Wrap(err, "inserting application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return offer.Application{}, offer.ErrAlreadyApplied
	}
	return app, nil
}

func (repo *offerRepository) GetApplication(ctx context.Context, id string) (offer.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return offer.Application{}, offer.ErrApplicationNotFound
	}
	var row applicationRow
	q := `SELECT ` + applicationColumns + ` FROM offer_application a WHERE a.id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return offer.Application{}, offer.ErrApplicationNotFound
		}
		return offer.Application{}, errors.Wrap(err, "selecting application")
	}
	return row.toApplication()
}

func (repo *offerRepository) QueryApplications(ctx context.Context, filter offer.ApplicationFilter) ([]offer.Application, error) {
	var (
		conds []string
		args  []interface{}
	)
	for _, cond := range []struct{ col, id string }{
		{col: "a.offer_id", id: filter.OfferID},
		{col: "o.creator_id", id: filter.OfferCreatorID},
		{col: "a.student_id", id: filter.StudentID},
	} {
		if cond.id == "" {
			continue
		}
		if _, err := uuid.Parse(cond.id); err != nil {
			return []offer.Application{}, nil
		}
		args = append(args, cond.id)
		conds = append(conds, fmt.Sprintf("%s = $%d", cond.col, len(args)))
	}
	if filter.Status != nil {
		args = append(args, filter.Status.String())
		conds = append(conds, fmt.Sprintf("a.status = $%d", len(args)))
	}

	q := `SELECT ` + applicationColumns + ` FROM offer_application a JOIN offer o ON o.id = a.offer_id`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY a.created_at ASC"

	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting applications")
	}
	apps := make([]offer.Application, 0, len(rows))
	for _, row := range rows {
		app, err := row.toApplication()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

func (repo *offerRepository) UpdateApplication(ctx context.Context, app offer.Application) error {
	if _, err := uuid.Parse(app.ID); err != nil {
		return offer.ErrApplicationNotFound
	}
	q := `UPDATE offer_application SET status = :status, interview_date = :interview_date WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newApplicationRow(app))
	if err != nil {
		return errors.Wrap(err, "updating application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return offer.ErrApplicationNotFound
	}
	return nil
}
