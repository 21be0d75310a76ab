package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
)

type curriculumRepository struct {
	db *DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *DB) curriculum.Repository {
	return &curriculumRepository{db: db}
}

func (repo *curriculumRepository) CreateCurriculum(_ context.Context, cv curriculum.Curriculum) (curriculum.Curriculum, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cv.ID = uuid.New().String()
	cv.Data = append([]byte(nil), cv.Data...)
	repo.db.curriculum[cv.ID] = &cv
	repo.db.track(cv.ID)
	return cv, nil
}

func (repo *curriculumRepository) GetCurriculum(_ context.Context, id string) (curriculum.Curriculum, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cv, ok := repo.db.curriculum[id]; ok {
		return *cv, nil
	}
	return curriculum.Curriculum{}, curriculum.ErrNotFound
}

func (repo *curriculumRepository) QueryCurriculums(_ context.Context, filter curriculum.QueryFilter, ordering []core.DBOrdering) ([]curriculum.Curriculum, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cvs := make([]curriculum.Curriculum, 0)
	for _, cv := range repo.db.curriculum {
		if filter.StudentID != "" && cv.StudentID != filter.StudentID {
			continue
		}
		if filter.Validity != nil && cv.Validity != *filter.Validity {
			continue
		}
		c := *cv
		c.Data = nil
		cvs = append(cvs, c)
	}

	sort.SliceStable(cvs, func(i, j int) bool { return repo.db.order[cvs[i].ID] < repo.db.order[cvs[j].ID] })
	for k := len(ordering) - 1; k >= 0; k-- {
		ord := ordering[k]
		sort.SliceStable(cvs, func(i, j int) bool {
			a, b := cvs[i], cvs[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "name":
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			case "created_at":
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return false
		})
	}
	return cvs, nil
}

func (repo *curriculumRepository) ReviewCurriculum(_ context.Context, id string, validity curriculum.Validity) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cv, ok := repo.db.curriculum[id]
	if !ok {
		return curriculum.ErrNotFound
	}
	if cv.Validity != curriculum.Pending {
		return curriculum.ErrAlreadyTreated
	}
	cv.Validity = validity
	return nil
}

func (repo *curriculumRepository) DeleteCurriculum(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cv, ok := repo.db.curriculum[id]
	if !ok {
		return curriculum.ErrNotFound
	}
	if repo.db.principals[cv.StudentID] == id {
		delete(repo.db.principals, cv.StudentID)
	}
	delete(repo.db.curriculum, id)
	delete(repo.db.order, id)
	return nil
}

func (repo *curriculumRepository) GetPrincipalID(_ context.Context, studentID string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.principals[studentID], nil
}

func (repo *curriculumRepository) SetPrincipalID(_ context.Context, studentID, curriculumID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.curriculum[curriculumID]; !ok {
		return curriculum.ErrNotFound
	}
	repo.db.principals[studentID] = curriculumID
	return nil
}
