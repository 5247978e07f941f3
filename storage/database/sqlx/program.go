package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/storage/database"
)

var taskColumns = []string{
	"id", "name", "week", "program_id", "tasks", "cost", "re_review_fine_amount", "is_active", "created_at", "updated_at",
}

var taskUpdateColumns = []string{
	"name", "week", "program_id", "tasks", "cost", "re_review_fine_amount", "is_active", "updated_at",
}

type taskRow struct {
	ID                 string          `db:"id"`
	Name               string          `db:"name"`
	Week               int             `db:"week"`
	ProgramID          string          `db:"program_id"`
	Tasks              pq.StringArray  `db:"tasks"`
	Cost               decimal.Decimal `db:"cost"`
	ReReviewFineAmount decimal.Decimal `db:"re_review_fine_amount"`
	IsActive           bool            `db:"is_active"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type taskRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo taskRepository) toRow(t program.Task) taskRow {
	return taskRow{
		ID:                 t.ID,
		Name:               t.Name,
		Week:               t.Week,
		ProgramID:          t.ProgramID,
		Tasks:              emptyIfNil(t.Tasks),
		Cost:               t.Cost,
		ReReviewFineAmount: t.ReReviewFineAmount,
		IsActive:           t.IsActive,
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
}

func (repo taskRepository) fromRow(row taskRow) program.Task {
	return program.Task{
		ID:                 row.ID,
		Name:               row.Name,
		Week:               row.Week,
		ProgramID:          row.ProgramID,
		Tasks:              emptyIfNil(row.Tasks),
		Cost:               row.Cost,
		ReReviewFineAmount: row.ReReviewFineAmount,
		IsActive:           row.IsActive,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

// trapWriteErr maps the partial unique index on active (program, week) to ErrDuplicateWeek.
func (repo taskRepository) trapWriteErr(err error, msg string) error {
	if database.IsUniqueViolation(err) {
		return program.ErrDuplicateWeek
	}
	return trapNoRowsErr(err, program.ErrNotFound, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, t program.Task) (program.Task, error) {
	if !validID(t.ProgramID) {
		return program.Task{}, errors.New("invalid program id")
	}
	t.ID = uuid.New().String()
	q := "INSERT INTO program_task (" + columnList(taskColumns) + ") VALUES (" + namedList(taskColumns) + ")" +
		" RETURNING " + columnList(taskColumns)

	var row taskRow
	if err := namedGet(ctx, repo.db, &row, q, repo.toRow(t)); err != nil {
		return program.Task{}, repo.trapWriteErr(err, "inserting program task")
	}
	return repo.fromRow(row), nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string) (program.Task, error) {
	if !validID(id) {
		return program.Task{}, program.ErrNotFound
	}
	var row taskRow
	q := "SELECT " + columnList(taskColumns) + " FROM program_task WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return program.Task{}, trapNoRowsErr(err, program.ErrNotFound, "getting program task")
	}
	return repo.fromRow(row), nil
}

func (repo taskRepository) GetTaskByWeek(ctx context.Context, programID string, week int) (program.Task, error) {
	if !validID(programID) {
		return program.Task{}, program.ErrNotFound
	}
	var row taskRow
	q := "SELECT " + columnList(taskColumns) + " FROM program_task WHERE program_id = $1 AND week = $2 AND is_active"
	if err := repo.db.GetContext(ctx, &row, q, programID, week); err != nil {
		return program.Task{}, trapNoRowsErr(err, program.ErrNotFound, "getting program task by week")
	}
	return repo.fromRow(row), nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, programID string) ([]program.Task, error) {
	q := "SELECT " + columnList(taskColumns) + " FROM program_task WHERE is_active"
	var args []interface{}
	if programID != "" {
		if !validID(programID) {
			return []program.Task{}, nil
		}
		q += " AND program_id = $1"
		args = append(args, programID)
	}
	q += " ORDER BY program_id, week"

	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying program tasks")
	}
	tasks := make([]program.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, repo.fromRow(row))
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t program.Task) (program.Task, error) {
	if !validID(t.ID) {
		return program.Task{}, program.ErrNotFound
	}
	q := "UPDATE program_task SET " + namedSet(taskUpdateColumns) + " WHERE id = :id RETURNING " + columnList(taskColumns)

	var row taskRow
	if err := namedGet(ctx, repo.db, &row, q, repo.toRow(t)); err != nil {
		return program.Task{}, repo.trapWriteErr(err, "updating program task")
	}
	return repo.fromRow(row), nil
}
