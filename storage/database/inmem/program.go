package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/mentorbro/core/program"
)

type taskRepository struct {
	db *taskTable
}

var _ program.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *DB) program.Repository {
	return &taskRepository{db: db.task}
}

func cloneTask(t program.Task) program.Task {
	t.Tasks = copyStrings(t.Tasks)
	return t
}

// weekTaken mirrors the partial unique index on active (program, week).
func (repo *taskRepository) weekTaken(t program.Task) bool {
	if !t.IsActive {
		return false
	}
	for _, other := range repo.db.table {
		if other.ID != t.ID && other.IsActive && other.ProgramID == t.ProgramID && other.Week == t.Week {
			return true
		}
	}
	return false
}

func (repo *taskRepository) CreateTask(_ context.Context, t program.Task) (program.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.weekTaken(t) {
		return program.Task{}, program.ErrDuplicateWeek
	}
	t.ID = newID()
	t = cloneTask(t)
	repo.db.table[t.ID] = &t
	return cloneTask(t), nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string) (program.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return cloneTask(*t), nil
	}
	return program.Task{}, program.ErrNotFound
}

func (repo *taskRepository) GetTaskByWeek(_ context.Context, programID string, week int) (program.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.db.table {
		if t.IsActive && t.ProgramID == programID && t.Week == week {
			return cloneTask(*t), nil
		}
	}
	return program.Task{}, program.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, programID string) ([]program.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]program.Task, 0)
	for _, t := range repo.db.table {
		if t.IsActive && (programID == "" || t.ProgramID == programID) {
			tasks = append(tasks, cloneTask(*t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].ProgramID != tasks[j].ProgramID {
			return tasks[i].ProgramID < tasks[j].ProgramID
		}
		return tasks[i].Week < tasks[j].Week
	})
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t program.Task) (program.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[t.ID]
	if !ok {
		return program.Task{}, program.ErrNotFound
	}
	if repo.weekTaken(t) {
		return program.Task{}, program.ErrDuplicateWeek
	}
	t = cloneTask(t)
	t.CreatedAt = orig.CreatedAt
	repo.db.table[t.ID] = &t
	return cloneTask(t), nil
}
