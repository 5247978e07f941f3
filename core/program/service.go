package program

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		now:      time.Now,
	}
}

func (svc *Service) checkWeekAvailable(ctx context.Context, programID string, week int, exclID string) error {
	existing, err := svc.repo.GetTaskByWeek(ctx, programID, week)
	switch {
	case err == nil:
		if existing.ID != exclID {
			return ErrDuplicateWeek
		}
		return nil
	case errors.Cause(err) == ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "getting task by week")
	}
}

func (svc *Service) Create(ctx context.Context, nt NewTask) (Task, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Task{}, err
	}
	if err := svc.checkWeekAvailable(ctx, nt.ProgramID, nt.Week, ""); err != nil {
		return Task{}, err
	}

	now := svc.now().UTC()
	t := Task{
		Name:               nt.Name,
		Week:               nt.Week,
		ProgramID:          nt.ProgramID,
		Tasks:              nt.Tasks,
		Cost:               nt.Cost,
		ReReviewFineAmount: nt.ReReviewFineAmount,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if t.Tasks == nil {
		t.Tasks = []string{}
	}
	return svc.repo.CreateTask(ctx, t)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTask(ctx, id)
}

func (svc *Service) GetByWeek(ctx context.Context, programID string, week int) (Task, error) {
	return svc.repo.GetTaskByWeek(ctx, programID, week)
}

func (svc *Service) Query(ctx context.Context, programID string) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, programID)
}

func (svc *Service) Update(ctx context.Context, id string, ut UpdateTask) (Task, error) {
	if err := ut.Validate(svc.validate); err != nil {
		return Task{}, err
	}
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}

	if ut.Week != nil && *ut.Week != t.Week && t.IsActive {
		if err = svc.checkWeekAvailable(ctx, t.ProgramID, *ut.Week, t.ID); err != nil {
			return Task{}, err
		}
		t.Week = *ut.Week
	} else if ut.Week != nil {
		t.Week = *ut.Week
	}
	if ut.Name != nil {
		t.Name = *ut.Name
	}
	if ut.Tasks != nil {
		t.Tasks = ut.Tasks
	}
	if ut.Cost != nil {
		t.Cost = *ut.Cost
	}
	if ut.ReReviewFineAmount != nil {
		t.ReReviewFineAmount = *ut.ReReviewFineAmount
	}
	t.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateTask(ctx, t)
}

// Delete retires the task. Reviews keep pointing to it and its week becomes free again.
func (svc *Service) Delete(ctx context.Context, id string) error {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !t.IsActive {
		return nil
	}
	t.IsActive = false
	t.UpdatedAt = svc.now().UTC()
	_, err = svc.repo.UpdateTask(ctx, t)
	return err
}
