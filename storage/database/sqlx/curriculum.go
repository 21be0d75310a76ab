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
)

type curriculumRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	Name        string    `db:"name"`
	ContentType string    `db:"content_type"`
	Data        []byte    `db:"data"`
	IsValid     null.Bool `db:"is_valid"` // NULL: pending
	CreatedAt   time.Time `db:"created_at"`
}

func newCurriculumRow(cv curriculum.Curriculum) curriculumRow {
	return curriculumRow{
		ID:          cv.ID,
		StudentID:   cv.StudentID,
		Name:        cv.Name,
		ContentType: cv.ContentType,
		Data:        cv.Data,
		IsValid:     null.BoolFromPtr(cv.Validity.Bool()),
		CreatedAt:   cv.CreatedAt,
	}
}

func (row curriculumRow) toCurriculum() curriculum.Curriculum {
	return curriculum.Curriculum{
		ID:          row.ID,
		StudentID:   row.StudentID,
		Name:        row.Name,
		ContentType: row.ContentType,
		Data:        row.Data,
		Validity:    curriculum.ValidityOf(row.IsValid.Ptr()),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type curriculumRepository struct {
	db *sqlx.DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *sqlx.DB) curriculum.Repository {
	return &curriculumRepository{db: db}
}

func (repo *curriculumRepository) CreateCurriculum(ctx context.Context, cv curriculum.Curriculum) (curriculum.Curriculum, error) {
	cv.ID = uuid.New().String()
	q := `INSERT INTO curriculum (id, student_id, name, content_type, data, is_valid, created_at)
		VALUES (:id, :student_id, :name, :content_type, :data, :is_valid, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newCurriculumRow(cv)); err != nil {
		return curriculum.Curriculum{}, errors.Wrap(err, "inserting curriculum")
	}
	return cv, nil
}

func (repo *curriculumRepository) GetCurriculum(ctx context.Context, id string) (curriculum.Curriculum, error) {
	if _, err := uuid.Parse(id); err != nil {
		return curriculum.Curriculum{}, curriculum.ErrNotFound
	}
	var row curriculumRow
	q := `SELECT id, student_id, name, content_type, data, is_valid, created_at FROM curriculum WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return curriculum.Curriculum{}, curriculum.ErrNotFound
		}
		return curriculum.Curriculum{}, errors.Wrap(err, "selecting curriculum")
	}
	return row.toCurriculum(), nil
}

func (repo *curriculumRepository) QueryCurriculums(ctx context.Context, filter curriculum.QueryFilter, ordering []core.DBOrdering) ([]curriculum.Curriculum, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.StudentID != "" {
		if _, err := uuid.Parse(filter.StudentID); err != nil {
			return []curriculum.Curriculum{}, nil
		}
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Validity != nil {
		if b := filter.Validity.Bool(); b != nil {
			args = append(args, *b)
			conds = append(conds, fmt.Sprintf("is_valid = $%d", len(args)))
		} else {
			conds = append(conds, "is_valid IS NULL")
		}
	}

	q := `SELECT id, student_id, name, content_type, is_valid, created_at FROM curriculum`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	orderBy := "created_at ASC"
	if len(ordering) > 0 {
		orderBy = core.JoinOrderings(caseInsensitive(ordering, "name")) + ", created_at ASC"
	}
	q += " ORDER BY " + orderBy

	var rows []curriculumRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting curricula")
	}
	cvs := make([]curriculum.Curriculum, 0, len(rows))
	for _, row := range rows {
		cvs = append(cvs, row.toCurriculum())
	}
	return cvs, nil
}

// caseInsensitive orders the given text columns by their lowercased value, independently of the collation.
func caseInsensitive(ordering []core.DBOrdering, fields ...string) []core.DBOrdering {
	out := make([]core.DBOrdering, len(ordering))
	for i, ord := range ordering {
		for _, f := range fields {
			if ord.Field == f {
				ord.Field = "lower(" + f + ")"
			}
		}
		out[i] = ord
	}
	return out
}

func (repo *curriculumRepository) ReviewCurriculum(ctx context.Context, id string, validity curriculum.Validity) error {
	isValid := validity.Bool()
	if isValid == nil {
		return errors.New("a review must be valid or invalid")
	}
	if _, err := uuid.Parse(id); err != nil {
		return curriculum.ErrNotFound
	}

	res, err := repo.db.ExecContext(ctx, `UPDATE curriculum SET is_valid = $2 WHERE id = $1 AND is_valid IS NULL`, id, *isValid)
	if err != nil {
		return errors.Wrap(err, "updating curriculum")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating curriculum")
	}
	if n == 0 {
		var found bool
		if err = repo.db.GetContext(ctx, &found, `SELECT true FROM curriculum WHERE id = $1`, id); err != nil {
			if err == sql.ErrNoRows {
				return curriculum.ErrNotFound
			}
			return errors.Wrap(err, "selecting curriculum")
		}
		return curriculum.ErrAlreadyTreated
	}
	return nil
}

func (repo *curriculumRepository) DeleteCurriculum(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return curriculum.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM curriculum WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting curriculum")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return curriculum.ErrNotFound
	}
	return nil
}

func (repo *curriculumRepository) GetPrincipalID(ctx context.Context, studentID string) (string, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return "", nil
	}
	var id string
	q := `SELECT curriculum_id FROM principal_curriculum WHERE student_id = $1`
	if err := repo.db.GetContext(ctx, &id, q, studentID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.Wrap(err, "selecting principal curriculum")
	}
	return id, nil
}

func (repo *curriculumRepository) SetPrincipalID(ctx context.Context, studentID, curriculumID string) error {
	if _, err := uuid.Parse(curriculumID); err != nil {
		return curriculum.ErrNotFound
	}
	q := `INSERT INTO principal_curriculum (student_id, curriculum_id)
		SELECT $1, id FROM curriculum WHERE id = $2
		ON CONFLICT (student_id) DO UPDATE SET curriculum_id = EXCLUDED.curriculum_id`
	res, err := repo.db.ExecContext(ctx, q, studentID, curriculumID)
	if err != nil {
		return errors.Wrap(err, "setting principal curriculum")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return curriculum.ErrNotFound
	}
	return nil
}
