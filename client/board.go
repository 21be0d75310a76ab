package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/curriculum"
)

// Backend is what a Board needs from the API. *Client implements it.
type Backend interface {
	curriculum.PrincipalAssigner
	GetStudentCurriculums(ctx context.Context, studentID string) (curriculum.StudentCurriculums, error)
	DownloadCurriculum(ctx context.Context, curriculumID string) ([]byte, error)
}

var _ Backend = (*Client)(nil)

// Row is a curriculum as listed on a Board.
type Row struct {
	Curriculum curriculum.Curriculum
	State      curriculum.DisplayState
}

// Board holds the curricula of one student for the lifetime of a view.
// Nothing is cached across boards: every Load fetches fresh data.
type Board struct {
	backend   Backend
	studentID string
	logger    core.Logger

	mu  sync.RWMutex
	set curriculum.StudentCurriculums
}

func NewBoard(backend Backend, studentID string, logger core.Logger) *Board {
	return &Board{
		backend:   backend,
		studentID: studentID,
		logger:    logger,
	}
}

// Load fetches & ranks the student's curricula. On failure the board is emptied and the error logged.
func (b *Board) Load(ctx context.Context) error {
	sc, err := b.backend.GetStudentCurriculums(ctx, b.studentID)
	if err != nil {
		b.mu.Lock()
		b.set = curriculum.StudentCurriculums{}
		b.mu.Unlock()

		err = errors.Wrap(err, "loading curricula")
		b.logger.Error(fmt.Sprintf("student %s: %v", b.studentID, err), err)
		return err
	}

	set := curriculum.StudentCurriculums{CurriculumList: curriculum.Rank(sc.CurriculumList)}
	if sc.Principal != nil {
		// keep the principal by identity with the listed element
		if cv, ok := set.Find(sc.Principal.ID); ok {
			set.Principal = &cv
		}
	}

	b.mu.Lock()
	b.set = set
	b.mu.Unlock()
	return nil
}

// SelectAsPrincipal asks the backend to make cv the principal curriculum, and records it once acknowledged.
// On failure the board is unchanged and the error logged.
func (b *Board) SelectAsPrincipal(ctx context.Context, cv curriculum.Curriculum) error {
	b.mu.RLock()
	set := b.set
	b.mu.RUnlock()

	if err := curriculum.SelectAsPrincipal(ctx, b.studentID, &set, cv, b.backend); err != nil {
		b.logger.Error(fmt.Sprintf("student %s: selecting principal curriculum %s: %v", b.studentID, cv.ID, err), err)
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// the list may have been reloaded meanwhile
	if listed, ok := b.set.Find(cv.ID); ok {
		b.set.Principal = &listed
	}
	return nil
}

func (b *Board) Icon(cv curriculum.Curriculum) curriculum.DisplayState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return curriculum.IconFor(cv, b.set)
}

// Rows returns the ranked curricula with their display state.
func (b *Board) Rows() []Row {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows := make([]Row, 0, len(b.set.CurriculumList))
	for _, cv := range b.set.CurriculumList {
		rows = append(rows, Row{Curriculum: cv, State: curriculum.IconFor(cv, b.set)})
	}
	return rows
}

// Empty reports whether there is nothing to show.
func (b *Board) Empty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.set.CurriculumList) == 0
}

func (b *Board) Principal() (curriculum.Curriculum, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.set.Principal == nil {
		return curriculum.Curriculum{}, false
	}
	return *b.set.Principal, true
}

// Find returns the listed curriculum with the given ID.
func (b *Board) Find(id string) (curriculum.Curriculum, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.set.Find(id)
}

// Download fetches the document of cv.
func (b *Board) Download(ctx context.Context, cv curriculum.Curriculum) ([]byte, error) {
	data, err := b.backend.DownloadCurriculum(ctx, cv.ID)
	if err != nil {
		err = errors.Wrapf(err, "downloading curriculum %s", cv.ID)
		b.logger.Error(err.Error(), err)
		return nil, err
	}
	return data, nil
}
