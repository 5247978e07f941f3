package program

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/mentorbro/core"
)

var (
	ErrNotFound = core.NewNotFoundError("program task")
	// ErrDuplicateWeek is returned by repositories when an active task already exists for a (program, week).
	ErrDuplicateWeek = core.NewConflictError("an active task already exists for this program week")
)

type (
	// Task is one week of curriculum work within a program.
	Task struct {
		ID                 string          `json:"id"`
		Name               string          `json:"name"`
		Week               int             `json:"week"`
		ProgramID          string          `json:"program"`
		Tasks              []string        `json:"tasks"`
		Cost               decimal.Decimal `json:"cost"`
		ReReviewFineAmount decimal.Decimal `json:"re_review_fine_amount"`
		IsActive           bool            `json:"isActive"`
		CreatedAt          time.Time       `json:"createdAt"`
		UpdatedAt          time.Time       `json:"updatedAt"`
	}

	// TaskRef is the display subset of a Task embedded in review responses.
	TaskRef struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Week int    `json:"week"`
	}

	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		// GetTask returns the task whatever its active flag: old reviews may point to retired tasks.
		GetTask(ctx context.Context, id string) (Task, error)
		// GetTaskByWeek only considers active tasks.
		GetTaskByWeek(ctx context.Context, programID string, week int) (Task, error)
		// QueryTasks returns the active tasks of a program (all programs if programID is empty), ordered by week.
		QueryTasks(ctx context.Context, programID string) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
	}
)

func (t Task) Ref() TaskRef {
	return TaskRef{ID: t.ID, Name: t.Name, Week: t.Week}
}

type NewTask struct {
	Name               string          `json:"name" validate:"required,max=100"`
	Week               int             `json:"week" validate:"required,min=1"`
	ProgramID          string          `json:"program" validate:"required"`
	Tasks              []string        `json:"tasks"`
	Cost               decimal.Decimal `json:"cost"`
	ReReviewFineAmount decimal.Decimal `json:"re_review_fine_amount"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.ProgramID = core.CleanString(nt.ProgramID)
	if err := validate.Struct(nt); err != nil {
		return err
	}
	return validateAmounts(nt.Cost, nt.ReReviewFineAmount)
}

type UpdateTask struct {
	Name               *string          `json:"name" validate:"omitempty,max=100"`
	Week               *int             `json:"week" validate:"omitempty,min=1"`
	Tasks              []string         `json:"tasks"`
	Cost               *decimal.Decimal `json:"cost"`
	ReReviewFineAmount *decimal.Decimal `json:"re_review_fine_amount"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	if ut.Name != nil {
		name := core.CleanString(*ut.Name)
		ut.Name = &name
	}
	if err := validate.Struct(ut); err != nil {
		return err
	}
	var cost, fine decimal.Decimal
	if ut.Cost != nil {
		cost = *ut.Cost
	}
	if ut.ReReviewFineAmount != nil {
		fine = *ut.ReReviewFineAmount
	}
	return validateAmounts(cost, fine)
}

func validateAmounts(cost, fine decimal.Decimal) error {
	var flds []core.FieldError
	if cost.IsNegative() {
		flds = append(flds, core.FieldError{Field: "cost", Error: "cost cannot be negative"})
	}
	if fine.IsNegative() {
		flds = append(flds, core.FieldError{Field: "re_review_fine_amount", Error: "fine cannot be negative"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
