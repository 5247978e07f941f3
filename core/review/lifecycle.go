package review

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/program"
)

const endTimeLayout = "03:04 PM"

func nullStringFrom(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

func nullTimeFrom(ft *core.FlexTime) null.Time {
	if ft == nil || ft.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(ft.UTC())
}

func (svc *Service) getTask(ctx context.Context, id string) (*program.Task, error) {
	if id == "" {
		return nil, nil
	}
	t, err := svc.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// getActiveTask is getTask for new work: reviews can only be booked against an active task.
func (svc *Service) getActiveTask(ctx context.Context, id string) (*program.Task, error) {
	t, err := svc.getTask(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	if !t.IsActive {
		return nil, ErrTaskRetired
	}
	return t, nil
}

// checkNoOpenReview enforces that a student has at most one open review per program task.
// A new attempt is only allowed once every previous one failed or got cancelled.
func (svc *Service) checkNoOpenReview(ctx context.Context, studentID, programTaskID, exclID string) error {
	if programTaskID == "" {
		return nil
	}
	existing, err := svc.repo.FindTaskReviews(ctx, studentID, programTaskID)
	if err != nil {
		return errors.Wrap(err, "finding task reviews")
	}
	for _, r := range existing {
		if r.ID != exclID && r.IsOpen() {
			return ErrReReviewNotAllowed
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nr NewTaskReview) (TaskReviewDetails, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return TaskReviewDetails{}, err
	}

	student, err := svc.directory.GetStudent(ctx, nr.StudentID)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	task, err := svc.getActiveTask(ctx, nr.ProgramTaskID)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if nr.ReviewerID != "" {
		if _, err = svc.directory.GetReviewer(ctx, nr.ReviewerID); err != nil {
			return TaskReviewDetails{}, err
		}
	}
	if err = svc.checkNoOpenReview(ctx, student.ID, nr.ProgramTaskID, ""); err != nil {
		return TaskReviewDetails{}, err
	}

	programID := nr.ProgramID
	if programID == "" && task != nil {
		programID = task.ProgramID
	}
	if programID == "" {
		programID = student.ProgramID
	}

	now := svc.now().UTC()
	r := TaskReview{
		StudentID:           student.ID,
		ProgramID:           programID,
		ProgramTaskID:       nr.ProgramTaskID,
		ReviewerID:          nr.ReviewerID,
		ScheduledDate:       nr.ScheduledDate.UTC(),
		ScheduledTime:       nr.ScheduledTime,
		SecondScheduledDate: nullTimeFrom(nr.SecondScheduledDate),
		SecondScheduledTime: nullStringFrom(nr.SecondScheduledTime),
		ConfirmedTime:       nullStringFrom(nr.ConfirmedTime),
		PendingTasks:        nr.PendingTasks,
		IsActive:            true,
		IsReReview:          nr.IsReReview,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if r.PendingTasks == nil {
		r.PendingTasks = []string{}
	}
	derivePayment(&r, task)
	applyReReviewInput(&r, nr.ReReviewDetails)

	if r, err = svc.repo.CreateReview(ctx, r); err != nil {
		return TaskReviewDetails{}, errors.Wrap(err, "creating review")
	}

	v, err := svc.load(ctx, r)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	svc.notifyStudent(notify.ReviewScheduled, v, v.notificationData())
	return v.details(), nil
}

// checkReviewerChangeable guards the operations that (un)assign a reviewer.
func checkReviewerChangeable(r TaskReview) error {
	if r.IsCancelled {
		return ErrReviewCancelled
	}
	if r.IsReviewCompleted {
		return ErrReviewCompleted
	}
	return nil
}

func (svc *Service) AssignReviewer(ctx context.Context, id string, ar AssignReviewer) (TaskReviewDetails, error) {
	if err := ar.Validate(svc.validate); err != nil {
		return TaskReviewDetails{}, err
	}
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if err = checkReviewerChangeable(r); err != nil {
		return TaskReviewDetails{}, err
	}
	if _, err = svc.directory.GetReviewer(ctx, ar.ReviewerID); err != nil {
		return TaskReviewDetails{}, err
	}

	if r.ReviewerID != ar.ReviewerID {
		// a confirmed time belongs to the previous reviewer
		r.ConfirmedTime = null.String{}
	}
	r.ReviewerID = ar.ReviewerID
	r.UpdatedAt = svc.now().UTC()
	if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
		return TaskReviewDetails{}, errors.Wrap(err, "updating review")
	}

	v, err := svc.load(ctx, r)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	svc.emailReviewerAssigned(v)
	svc.notifyStaff(notify.ReviewerAssigned, v, v.notificationData())
	return v.details(), nil
}

func (svc *Service) UnassignReviewer(ctx context.Context, id string) (TaskReviewDetails, error) {
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if err = checkReviewerChangeable(r); err != nil {
		return TaskReviewDetails{}, err
	}

	r.ReviewerID = ""
	r.ConfirmedTime = null.String{}
	r.UpdatedAt = svc.now().UTC()
	if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
		return TaskReviewDetails{}, errors.Wrap(err, "updating review")
	}

	v, err := svc.load(ctx, r)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	svc.notifyStaff(notify.ReviewerUnassigned, v, v.notificationData())
	return v.details(), nil
}

func (svc *Service) Cancel(ctx context.Context, id string, cr CancelTaskReview) (TaskReviewDetails, error) {
	if err := cr.Validate(svc.validate); err != nil {
		return TaskReviewDetails{}, err
	}
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if r.IsCancelled {
		return TaskReviewDetails{}, ErrReviewCancelled
	}
	if r.IsReviewCompleted {
		return TaskReviewDetails{}, ErrReviewCompleted
	}

	r.IsCancelled = true
	if cr.Reason != "" {
		r.CancelReason = null.StringFrom(cr.Reason)
	}
	r.UpdatedAt = svc.now().UTC()
	if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
		return TaskReviewDetails{}, errors.Wrap(err, "updating review")
	}

	v, err := svc.load(ctx, r)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	data := v.notificationData()
	data.Reason = cr.Reason
	data.CancelledBy = cr.CancelledBy
	svc.notifyStudent(notify.ReviewCancelled, v, data)
	return v.details(), nil
}

func (svc *Service) Complete(ctx context.Context, id string, cr CompleteTaskReview) (TaskReviewDetails, error) {
	if err := cr.Validate(svc.validate); err != nil {
		return TaskReviewDetails{}, err
	}
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if r.IsCancelled {
		return TaskReviewDetails{}, ErrReviewCancelled
	}
	if r.IsReviewCompleted {
		return TaskReviewDetails{}, ErrReviewCompleted
	}

	now := svc.now()
	r.IsReviewCompleted = true
	r.ReviewStatus = null.StringFrom(cr.ReviewStatus)
	r.ScoreInTheory = null.Float64FromPtr(cr.ScoreInTheory)
	r.ScoreInPractical = null.Float64FromPtr(cr.ScoreInPractical)
	r.PracticalImprovement = cr.PracticalImprovement
	r.TheoryImprovement = cr.TheoryImprovement
	if cr.PendingTasks != nil {
		r.PendingTasks = cr.PendingTasks
	}
	if cr.EndDate != nil && !cr.EndDate.IsZero() {
		r.EndDate = null.TimeFrom(cr.EndDate.UTC())
	} else {
		r.EndDate = null.TimeFrom(now.UTC())
	}
	r.EndTime = null.StringFrom(core.FirstNonEmpty(cr.EndTime, now.In(core.IST).Format(endTimeLayout)))
	r.UpdatedAt = now.UTC()
	if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
		return TaskReviewDetails{}, errors.Wrap(err, "updating review")
	}

	v, err := svc.load(ctx, r)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	data := v.notificationData()
	data.Status = r.ReviewStatus.String
	data.Score = r.TotalScore()
	svc.notifyStudent(notify.ReviewCompleted, v, data)
	return v.details(), nil
}

// Update applies a patch. Changing the reviewer is subject to the same rules as AssignReviewer & UnassignReviewer.
// paymentAmount & re-review details are derived again whenever the task or the re-review flag change.
func (svc *Service) Update(ctx context.Context, id string, ur UpdateTaskReview) (TaskReviewDetails, error) {
	if err := ur.Validate(svc.validate); err != nil {
		return TaskReviewDetails{}, err
	}
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if r.IsCancelled {
		return TaskReviewDetails{}, ErrReviewCancelled
	}

	if ur.Reviewer.Set && ur.Reviewer.ID != r.ReviewerID {
		if err = checkReviewerChangeable(r); err != nil {
			return TaskReviewDetails{}, err
		}
		if ur.Reviewer.ID != "" {
			if _, err = svc.directory.GetReviewer(ctx, ur.Reviewer.ID); err != nil {
				return TaskReviewDetails{}, err
			}
		}
		r.ReviewerID = ur.Reviewer.ID
		r.ConfirmedTime = null.String{}
	}

	if ur.ProgramTaskID != nil && *ur.ProgramTaskID != r.ProgramTaskID {
		taskID := core.CleanString(*ur.ProgramTaskID)
		if taskID != "" {
			if _, err = svc.getActiveTask(ctx, taskID); err != nil {
				return TaskReviewDetails{}, err
			}
			if err = svc.checkNoOpenReview(ctx, r.StudentID, taskID, r.ID); err != nil {
				return TaskReviewDetails{}, err
			}
		}
		r.ProgramTaskID = taskID
	}
	if ur.ProgramID != nil {
		r.ProgramID = core.CleanString(*ur.ProgramID)
	}

	applyPatch(&r, ur)

	if ur.touchesPayment() {
		task, err := svc.getTask(ctx, r.ProgramTaskID)
		if err != nil {
			return TaskReviewDetails{}, err
		}
		derivePayment(&r, task)
		applyReReviewInput(&r, ur.ReReviewDetails)
	}

	r.UpdatedAt = svc.now().UTC()
	if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
		return TaskReviewDetails{}, errors.Wrap(err, "updating review")
	}
	return svc.populate(ctx, r)
}

// applyPatch copies the plain attributes of a patch. Relations & payment are handled by Update.
func applyPatch(r *TaskReview, ur UpdateTaskReview) {
	if ur.ScheduledDate != nil && !ur.ScheduledDate.IsZero() {
		r.ScheduledDate = ur.ScheduledDate.UTC()
	}
	if ur.ScheduledTime != nil && *ur.ScheduledTime != "" {
		r.ScheduledTime = *ur.ScheduledTime
	}
	if ur.SecondScheduledDate != nil {
		r.SecondScheduledDate = nullTimeFrom(ur.SecondScheduledDate)
	}
	if ur.SecondScheduledTime != nil {
		r.SecondScheduledTime = nullStringFrom(*ur.SecondScheduledTime)
	}
	if ur.ConfirmedTime != nil {
		r.ConfirmedTime = nullStringFrom(*ur.ConfirmedTime)
	}
	if ur.ScoreInTheory != nil {
		r.ScoreInTheory = null.Float64From(*ur.ScoreInTheory)
	}
	if ur.ScoreInPractical != nil {
		r.ScoreInPractical = null.Float64From(*ur.ScoreInPractical)
	}
	if ur.ReviewStatus != nil {
		r.ReviewStatus = nullStringFrom(*ur.ReviewStatus)
	}
	if ur.PracticalImprovement != nil {
		r.PracticalImprovement = *ur.PracticalImprovement
	}
	if ur.TheoryImprovement != nil {
		r.TheoryImprovement = *ur.TheoryImprovement
	}
	if ur.PendingTasks != nil {
		r.PendingTasks = ur.PendingTasks
	}
	if ur.IsReviewCompleted != nil {
		r.IsReviewCompleted = *ur.IsReviewCompleted
	}
	if ur.IsReReview != nil {
		r.IsReReview = *ur.IsReReview
	}
	if ur.IsPaymentOrderd != nil {
		r.IsPaymentOrderd = *ur.IsPaymentOrderd
	}
	if ur.IsPaymentCompleted != nil {
		r.IsPaymentCompleted = *ur.IsPaymentCompleted
	}
	if ur.EndDate != nil {
		r.EndDate = nullTimeFrom(ur.EndDate)
	}
	if ur.EndTime != nil {
		r.EndTime = nullStringFrom(*ur.EndTime)
	}
}

// BulkUpdate applies each patch independently: a failing item does not stop the others.
func (svc *Service) BulkUpdate(ctx context.Context, items []BulkUpdateItem) (BulkUpdateResult, error) {
	if len(items) == 0 {
		return BulkUpdateResult{}, core.NewValidationError(nil, core.FieldError{Field: "updates", Error: "no update provided"})
	}

	res := BulkUpdateResult{Updated: []TaskReviewDetails{}, Failed: []BulkUpdateFailure{}}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id := core.CleanString(item.ID)
		if id == "" {
			res.Failed = append(res.Failed, BulkUpdateFailure{ID: id, Error: "id is required"})
			continue
		}
		d, err := svc.Update(ctx, id, item.Patch)
		if err != nil {
			res.Failed = append(res.Failed, BulkUpdateFailure{ID: id, Error: err.Error()})
			continue
		}
		res.Updated = append(res.Updated, d)
	}
	return res, nil
}

// Remove soft deletes a review: it disappears from every read.
func (svc *Service) Remove(ctx context.Context, id string) error {
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	r.IsActive = false
	r.UpdatedAt = svc.now().UTC()
	_, err = svc.repo.UpdateReview(ctx, r)
	return errors.Wrap(err, "removing review")
}

func equalTasks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SyncPendingTasks copies the current task list of the program task into an open review.
// Completed & cancelled reviews are returned unchanged.
func (svc *Service) SyncPendingTasks(ctx context.Context, id string) (TaskReviewDetails, error) {
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if r.IsCancelled || r.IsReviewCompleted || r.ProgramTaskID == "" {
		return svc.populate(ctx, r)
	}
	task, err := svc.tasks.GetTask(ctx, r.ProgramTaskID)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if !equalTasks(r.PendingTasks, task.Tasks) {
		r.PendingTasks = append([]string{}, task.Tasks...)
		r.UpdatedAt = svc.now().UTC()
		if r, err = svc.repo.UpdateReview(ctx, r); err != nil {
			return TaskReviewDetails{}, errors.Wrap(err, "updating review")
		}
	}
	return svc.populate(ctx, r)
}

// SyncAllPendingTasks runs SyncPendingTasks on every open review and returns how many changed.
func (svc *Service) SyncAllPendingTasks(ctx context.Context) (int, error) {
	open, err := svc.repo.FindOpenByProgramTask(ctx, "")
	if err != nil {
		return 0, errors.Wrap(err, "finding open reviews")
	}

	tasks := make(map[string]*program.Task)
	var synced int
	for _, r := range open {
		if r.ProgramTaskID == "" {
			continue
		}
		task, cached := tasks[r.ProgramTaskID]
		if !cached {
			task, err = svc.getTask(ctx, r.ProgramTaskID)
			if err = ignoreNotFound(err); err != nil {
				return synced, err
			}
			tasks[r.ProgramTaskID] = task
		}
		if task == nil || equalTasks(r.PendingTasks, task.Tasks) {
			continue
		}
		r.PendingTasks = append([]string{}, task.Tasks...)
		r.UpdatedAt = svc.now().UTC()
		if _, err = svc.repo.UpdateReview(ctx, r); err != nil {
			return synced, errors.Wrap(err, "updating review")
		}
		synced++
	}
	return synced, nil
}
