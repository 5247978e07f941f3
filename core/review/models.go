package review

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/program"
)

// Review statuses
const (
	StatusVeryGood         = "very_good"
	StatusGood             = "good"
	StatusNeedImprovements = "need_improvements"
	StatusFailed           = "failed"
)

// Earnings periods
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

var (
	defaultReReviewFine = decimal.NewFromInt(100)
	defaultReReviewCost = decimal.NewFromInt(120)
)

type (
	// ReReviewDetails is owned by its TaskReview.
	ReReviewDetails struct {
		FineAmount  decimal.Decimal `json:"fineAmount"`
		PaymentDate null.Time       `json:"paymentDate"`
		Proof       null.String     `json:"proof"`
	}

	// TaskReview is one scheduled/performed review session.
	TaskReview struct {
		ID            string `json:"id"`
		StudentID     string `json:"studentId"`
		ProgramID     string `json:"programId,omitempty"`
		ProgramTaskID string `json:"programTaskId,omitempty"`
		ReviewerID    string `json:"reviewerId,omitempty"` // empty when unassigned

		ScheduledDate       time.Time   `json:"scheduledDate"`
		ScheduledTime       string      `json:"scheduledTime"`
		SecondScheduledDate null.Time   `json:"secondScheduledDate"`
		SecondScheduledTime null.String `json:"secondScheduledTime"`
		ConfirmedTime       null.String `json:"confirmedTime"`

		ScoreInTheory        null.Float64 `json:"scoreInTheory"`
		ScoreInPractical     null.Float64 `json:"scoreInPractical"`
		ReviewStatus         null.String  `json:"reviewStatus"`
		PracticalImprovement string       `json:"practicalImprovement"`
		TheoryImprovement    string       `json:"theoryImprovement"`
		PendingTasks         []string     `json:"pendingTasks"`

		IsReviewCompleted bool        `json:"isReviewCompleted"`
		IsCancelled       bool        `json:"isCancelled"`
		CancelReason      null.String `json:"cancelReason"`
		IsActive          bool        `json:"isActive"`
		IsReReview        bool        `json:"isReReview"`

		PaymentAmount      decimal.Decimal `json:"paymentAmount"`
		IsPaymentOrderd    bool            `json:"isPaymentOrderd"`
		IsPaymentCompleted bool            `json:"isPaymentCompleted"`
		ReReviewDetails    ReReviewDetails `json:"re_reviewDetails"`

		IsReminderSent bool `json:"isReminderSent"`

		EndDate null.Time   `json:"endDate"`
		EndTime null.String `json:"endTime"`

		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	StudentRef struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	ProgramRef struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		TotalWeeks int    `json:"totalWeeks"`
	}

	ReviewerRef struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
		Username string `json:"username"`
	}

	// TaskReviewDetails is a TaskReview populated with the display fields of what it references.
	TaskReviewDetails struct {
		TaskReview
		Student     *StudentRef      `json:"student"`
		Program     *ProgramRef      `json:"program"`
		ProgramTask *program.TaskRef `json:"programTask"`
		Reviewer    *ReviewerRef     `json:"reviewer"`
	}
)

// IsOpen reports whether the review still blocks a new attempt on the same task.
func (r TaskReview) IsOpen() bool {
	return r.IsActive && !r.IsCancelled && r.ReviewStatus.String != StatusFailed
}

func (r TaskReview) IsAssigned() bool { return r.ReviewerID != "" }

// DisplayTime is the confirmed time if any, the scheduled time otherwise.
func (r TaskReview) DisplayTime() string {
	if r.ConfirmedTime.Valid && r.ConfirmedTime.String != "" {
		return r.ConfirmedTime.String
	}
	return r.ScheduledTime
}

// TotalScore is the sum of both scores, if any was given.
func (r TaskReview) TotalScore() *float64 {
	if !r.ScoreInTheory.Valid && !r.ScoreInPractical.Valid {
		return nil
	}
	total := r.ScoreInTheory.Float64 + r.ScoreInPractical.Float64
	return &total
}

func newStudentRef(s directory.Student) *StudentRef {
	return &StudentRef{ID: s.ID, Name: s.Name, Email: s.Email}
}

func newProgramRef(p directory.Program) *ProgramRef {
	return &ProgramRef{ID: p.ID, Name: p.Name, TotalWeeks: p.TotalWeeks}
}

func newReviewerRef(r directory.Reviewer) *ReviewerRef {
	return &ReviewerRef{ID: r.ID, FullName: r.DisplayName(), Username: r.Username}
}

type (
	// QueryFilter applies AND operation on set fields.
	QueryFilter struct {
		StudentID string `query:"student"`
		// Reviewer: "" (not filtered), "null" | "unassigned" (no reviewer) or a reviewer ID.
		Reviewer          string `query:"reviewer"`
		ProgramID         string `query:"program"`
		IsReviewCompleted *bool  `query:"isReviewCompleted"`
		ReviewStatus      string `query:"reviewStatus"`
		// set by Clean
		Unassigned bool   `query:"-"`
		ReviewerID string `query:"-"`
	}

	// ScheduleFilter selects the reviews a reminder pass looks at: active, not cancelled, not completed.
	ScheduleFilter struct {
		From, To       time.Time
		OnlyUnreminded bool
	}

	AdminStatsFilter struct {
		From *time.Time
		To   *time.Time
	}

	PendingPayment struct {
		Amount decimal.Decimal `json:"amount"`
		Count  int             `json:"count"`
	}

	AdminStats struct {
		PendingPayment         PendingPayment `json:"pendingPayment"`
		TotalCompletedReviews  int            `json:"totalCompletedReviews"`
		TotalUnassignedReviews int            `json:"totalUnassignedReviews"`
	}

	// DailyEarning is the earnings of one IST calendar day ("2006-01-02").
	DailyEarning struct {
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
		Count  int             `json:"count"`
	}

	Earnings struct {
		Period        string          `json:"period"`
		From          time.Time       `json:"from"`
		To            time.Time       `json:"to"`
		TotalEarnings decimal.Decimal `json:"totalEarnings"`
		TotalReviews  int             `json:"totalReviews"`
		Daily         []DailyEarning  `json:"daily"`
	}

	Repository interface {
		CreateReview(ctx context.Context, r TaskReview) (TaskReview, error)
		// GetReview only returns active reviews.
		GetReview(ctx context.Context, id string) (TaskReview, error)
		// UpdateReview replaces every field but IsReminderSent, which only MarkReminderSent may change.
		UpdateReview(ctx context.Context, r TaskReview) (TaskReview, error)
		// QueryReviews returns a page of active reviews and the total count of matches.
		QueryReviews(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]TaskReview, int, error)
		// FindTaskReviews returns the active, non-cancelled reviews of a student on a program task.
		FindTaskReviews(ctx context.Context, studentID, programTaskID string) ([]TaskReview, error)
		// LastCompletedReview returns the student's completed, non-cancelled review with the latest endDate.
		LastCompletedReview(ctx context.Context, studentID string) (TaskReview, error)
		// FindScheduled returns the reviews scheduled within [From, To] a reminder pass must consider.
		FindScheduled(ctx context.Context, filter ScheduleFilter) ([]TaskReview, error)
		// FindOpenByProgramTask returns active, not cancelled, not completed reviews (of one task if id is set).
		FindOpenByProgramTask(ctx context.Context, programTaskID string) ([]TaskReview, error)
		// MarkReminderSent flips IsReminderSent from false to true. It reports false if it was already set.
		MarkReminderSent(ctx context.Context, id string) (bool, error)
		AdminStats(ctx context.Context, filter AdminStatsFilter) (AdminStats, error)
		// DailyEarnings sums the paid, active reviews of a reviewer per IST day of endDate within [from, to].
		// Days without activity are omitted.
		DailyEarnings(ctx context.Context, reviewerID string, from, to time.Time) ([]DailyEarning, error)
	}
)

// Clean normalizes the reviewer filter.
func (f *QueryFilter) Clean() {
	f.StudentID = core.CleanString(f.StudentID)
	f.ProgramID = core.CleanString(f.ProgramID)
	f.ReviewStatus = core.CleanString(f.ReviewStatus, true)

	f.Unassigned, f.ReviewerID = false, ""
	switch r := core.CleanString(f.Reviewer); r {
	case "":
	case "null", "unassigned":
		f.Unassigned = true
	default:
		f.ReviewerID = r
	}
}

// ReviewerField is the `reviewer` attribute of an update: it distinguishes an absent field from an explicit null.
type ReviewerField struct {
	Set bool
	ID  string // empty means unassign
}

func (f *ReviewerField) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.ID = ""
		return nil
	}
	return json.Unmarshal(data, &f.ID)
}
