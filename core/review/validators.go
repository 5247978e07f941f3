package review

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mentorbro/core"
)

type (
	ReReviewInput struct {
		PaymentDate *core.FlexTime `json:"paymentDate"`
		Proof       *string        `json:"proof"`
	}

	NewTaskReview struct {
		StudentID           string         `json:"student" validate:"required"`
		ProgramID           string         `json:"program"`
		ProgramTaskID       string         `json:"programTask"`
		ReviewerID          string         `json:"reviewer"`
		ScheduledDate       core.FlexTime  `json:"scheduledDate"`
		ScheduledTime       string         `json:"scheduledTime" validate:"required"`
		SecondScheduledDate *core.FlexTime `json:"secondScheduledDate"`
		SecondScheduledTime string         `json:"secondScheduledTime"`
		ConfirmedTime       string         `json:"confirmedTime"`
		PendingTasks        []string       `json:"pendingTasks"`
		IsReReview          bool           `json:"isReReview"`
		ReReviewDetails     *ReReviewInput `json:"re_reviewDetails"`
	}

	// UpdateTaskReview is a patch: nil fields are left untouched.
	UpdateTaskReview struct {
		ProgramID            *string        `json:"program"`
		ProgramTaskID        *string        `json:"programTask"`
		Reviewer             ReviewerField  `json:"reviewer"`
		ScheduledDate        *core.FlexTime `json:"scheduledDate"`
		ScheduledTime        *string        `json:"scheduledTime"`
		SecondScheduledDate  *core.FlexTime `json:"secondScheduledDate"`
		SecondScheduledTime  *string        `json:"secondScheduledTime"`
		ConfirmedTime        *string        `json:"confirmedTime"`
		ScoreInTheory        *float64       `json:"scoreInTheory" validate:"omitempty,min=0,max=100"`
		ScoreInPractical     *float64       `json:"scoreInPractical" validate:"omitempty,min=0,max=100"`
		ReviewStatus         *string        `json:"reviewStatus" validate:"omitempty,oneof=very_good good need_improvements failed"`
		PracticalImprovement *string        `json:"practicalImprovement"`
		TheoryImprovement    *string        `json:"theoryImprovement"`
		PendingTasks         []string       `json:"pendingTasks"`
		IsReviewCompleted    *bool          `json:"isReviewCompleted"`
		IsReReview           *bool          `json:"isReReview"`
		IsPaymentOrderd      *bool          `json:"isPaymentOrderd"`
		IsPaymentCompleted   *bool          `json:"isPaymentCompleted"`
		ReReviewDetails      *ReReviewInput `json:"re_reviewDetails"`
		EndDate              *core.FlexTime `json:"endDate"`
		EndTime              *string        `json:"endTime" validate:"omitempty,timeofday"`
	}

	CompleteTaskReview struct {
		ScoreInTheory        *float64       `json:"scoreInTheory" validate:"omitempty,min=0,max=100"`
		ScoreInPractical     *float64       `json:"scoreInPractical" validate:"omitempty,min=0,max=100"`
		ReviewStatus         string         `json:"reviewStatus" validate:"required,oneof=very_good good need_improvements failed"`
		PracticalImprovement string         `json:"practicalImprovement"`
		TheoryImprovement    string         `json:"theoryImprovement"`
		PendingTasks         []string       `json:"pendingTasks"`
		EndDate              *core.FlexTime `json:"endDate"`
		EndTime              string         `json:"endTime" validate:"omitempty,timeofday"`
	}

	CancelTaskReview struct {
		Reason      string `json:"reason" validate:"max=500"`
		CancelledBy string `json:"cancelledBy"`
	}

	AssignReviewer struct {
		ReviewerID string `json:"reviewerId" validate:"required"`
	}

	BulkUpdateItem struct {
		ID    string           `json:"id" validate:"required"`
		Patch UpdateTaskReview `json:"data"`
	}

	BulkUpdateFailure struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}

	BulkUpdateResult struct {
		Updated []TaskReviewDetails `json:"updated"`
		Failed  []BulkUpdateFailure `json:"failed"`
	}
)

func (nr *NewTaskReview) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.ProgramID = core.CleanString(nr.ProgramID)
	nr.ProgramTaskID = core.CleanString(nr.ProgramTaskID)
	nr.ReviewerID = core.CleanString(nr.ReviewerID)
	nr.ScheduledTime = core.CleanString(nr.ScheduledTime)
	nr.SecondScheduledTime = core.CleanString(nr.SecondScheduledTime)
	nr.ConfirmedTime = core.CleanString(nr.ConfirmedTime)
	if err := validate.Struct(nr); err != nil {
		return err
	}
	// struct typed fields are not checked by `required`
	if nr.ScheduledDate.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "scheduledDate", Error: "this field is required"})
	}
	return nil
}

func (ur *UpdateTaskReview) Validate(validate *validator.Validate) error {
	for _, s := range []*string{ur.ScheduledTime, ur.SecondScheduledTime, ur.ConfirmedTime, ur.EndTime, ur.PracticalImprovement, ur.TheoryImprovement} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	ur.Reviewer.ID = core.CleanString(ur.Reviewer.ID)
	return validate.Struct(ur)
}

// AdminOnly reports whether the patch changes fields reserved to admins: task, reviewer, re-review and payment.
func (ur UpdateTaskReview) AdminOnly() bool {
	return ur.ProgramID != nil || ur.ProgramTaskID != nil || ur.Reviewer.Set || ur.IsReReview != nil ||
		ur.ReReviewDetails != nil || ur.IsPaymentOrderd != nil || ur.IsPaymentCompleted != nil
}

// touchesPayment reports whether the patch requires paymentAmount & re-review details to be derived again.
func (ur UpdateTaskReview) touchesPayment() bool {
	return ur.ProgramTaskID != nil || ur.IsReReview != nil || ur.ReReviewDetails != nil
}

func (cr *CompleteTaskReview) Validate(validate *validator.Validate) error {
	cr.ReviewStatus = core.CleanString(cr.ReviewStatus, true)
	cr.PracticalImprovement = core.CleanString(cr.PracticalImprovement)
	cr.TheoryImprovement = core.CleanString(cr.TheoryImprovement)
	cr.EndTime = core.CleanString(cr.EndTime)
	return validate.Struct(cr)
}

func (cr *CancelTaskReview) Validate(validate *validator.Validate) error {
	cr.Reason = core.CleanString(cr.Reason)
	cr.CancelledBy = core.CleanString(cr.CancelledBy)
	return validate.Struct(cr)
}

func (ar *AssignReviewer) Validate(validate *validator.Validate) error {
	ar.ReviewerID = core.CleanString(ar.ReviewerID)
	return validate.Struct(ar)
}
