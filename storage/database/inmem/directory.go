package inmemdb

import (
	"context"

	"github.com/trezcool/mentorbro/core/directory"
)

type directoryRepository struct {
	db *directoryTables
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(db *DB) directory.Repository {
	return &directoryRepository{db: db.directory}
}

func (repo *directoryRepository) GetStudent(_ context.Context, id string) (directory.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return directory.Student{}, directory.ErrStudentNotFound
}

func (repo *directoryRepository) GetReviewer(_ context.Context, id string) (directory.Reviewer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.reviewers[id]; ok {
		r := *r
		r.TeachingPrograms = copyStrings(r.TeachingPrograms)
		return r, nil
	}
	return directory.Reviewer{}, directory.ErrReviewerNotFound
}

func (repo *directoryRepository) GetProgram(_ context.Context, id string) (directory.Program, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.programs[id]; ok {
		return *p, nil
	}
	return directory.Program{}, directory.ErrProgramNotFound
}

func (repo *directoryRepository) GetBatch(_ context.Context, id string) (directory.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.batches[id]; ok {
		return *b, nil
	}
	return directory.Batch{}, directory.ErrBatchNotFound
}

func (repo *directoryRepository) CreateStudent(_ context.Context, s directory.Student) (directory.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = newID()
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *directoryRepository) CreateReviewer(_ context.Context, r directory.Reviewer) (directory.Reviewer, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r.ID = newID()
	r.TeachingPrograms = copyStrings(r.TeachingPrograms)
	repo.db.reviewers[r.ID] = &r
	return r, nil
}

func (repo *directoryRepository) CreateProgram(_ context.Context, p directory.Program) (directory.Program, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = newID()
	repo.db.programs[p.ID] = &p
	return p, nil
}

func (repo *directoryRepository) CreateBatch(_ context.Context, b directory.Batch) (directory.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b.ID = newID()
	repo.db.batches[b.ID] = &b
	return b, nil
}
