package review

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/program"
)

// OrderingFields are the fields reviews can be sorted by.
var OrderingFields = map[string]bool{
	"scheduledDate": true,
	"createdAt":     true,
	"updatedAt":     true,
	"endDate":       true,
	"paymentAmount": true,
}

var defaultOrdering = []core.DBOrdering{{Field: "scheduledDate"}}

func cleanOrdering(ordering []core.DBOrdering) ([]core.DBOrdering, error) {
	if len(ordering) == 0 {
		return defaultOrdering, nil
	}
	for _, o := range ordering {
		if !OrderingFields[o.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "cannot order by " + o.Field})
		}
	}
	return ordering, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (TaskReviewDetails, error) {
	r, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	return svc.populate(ctx, r)
}

// Query returns a page of the reviews matching the filter, most recently scheduled first by default.
func (svc *Service) Query(
	ctx context.Context,
	filter QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]TaskReviewDetails, core.Pagination, error) {
	filter.Clean()
	page = page.Clean()
	ordering, err := cleanOrdering(ordering)
	if err != nil {
		return nil, core.Pagination{}, err
	}

	reviews, total, err := svc.repo.QueryReviews(ctx, filter, ordering, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying reviews")
	}
	details, err := svc.populateAll(ctx, reviews)
	if err != nil {
		return nil, core.Pagination{}, err
	}
	return details, core.NewPagination(page, total), nil
}

func (svc *Service) GetByStudentID(ctx context.Context, studentID string, ordering []core.DBOrdering, page core.Page) ([]TaskReviewDetails, core.Pagination, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, core.Pagination{}, core.NewValidationError(nil, core.FieldError{Field: "student", Error: "this field is required"})
	}
	return svc.Query(ctx, QueryFilter{StudentID: studentID}, ordering, page)
}

func (svc *Service) GetByReviewerID(ctx context.Context, reviewerID string, ordering []core.DBOrdering, page core.Page) ([]TaskReviewDetails, core.Pagination, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, core.Pagination{}, core.NewValidationError(nil, core.FieldError{Field: "reviewer", Error: "this field is required"})
	}
	return svc.Query(ctx, QueryFilter{Reviewer: reviewerID}, ordering, page)
}

// GetLastReviewForStudent returns the most recently scheduled review of the student.
func (svc *Service) GetLastReviewForStudent(ctx context.Context, studentID string) (TaskReviewDetails, error) {
	reviews, _, err := svc.Query(ctx, QueryFilter{StudentID: studentID}, nil, core.Page{Page: 1, Limit: 1})
	if err != nil {
		return TaskReviewDetails{}, err
	}
	if len(reviews) == 0 {
		return TaskReviewDetails{}, ErrNotFound
	}
	return reviews[0], nil
}

// NextWeek is the program task a student should be reviewed on next.
type NextWeek struct {
	Week       int          `json:"week"`
	Task       program.Task `json:"task"`
	IsReReview bool         `json:"isReReview"`
	LastReview *TaskReview  `json:"lastReview"`
}

// GetNextWeekForStudent returns week 1 of the student's program if no review was ever completed,
// the same week again if the last completed review failed, the following week otherwise.
func (svc *Service) GetNextWeekForStudent(ctx context.Context, studentID string) (NextWeek, error) {
	student, err := svc.directory.GetStudent(ctx, studentID)
	if err != nil {
		return NextWeek{}, err
	}

	var next NextWeek
	programID := student.ProgramID

	last, err := svc.repo.LastCompletedReview(ctx, student.ID)
	switch {
	case err == nil:
		next.LastReview = &last
		lastTask, err := svc.getTask(ctx, last.ProgramTaskID)
		if err = ignoreNotFound(err); err != nil {
			return NextWeek{}, err
		}
		if lastTask == nil {
			next.Week = 1
			break
		}
		programID = core.FirstNonEmpty(lastTask.ProgramID, programID)
		if last.ReviewStatus.String == StatusFailed {
			next.Week, next.IsReReview = lastTask.Week, true
		} else {
			next.Week = lastTask.Week + 1
		}
	case core.IsNotFound(err):
		next.Week = 1
	default:
		return NextWeek{}, errors.Wrap(err, "getting last completed review")
	}

	if programID == "" {
		return NextWeek{}, core.NewValidationError(nil, core.FieldError{Field: "program", Error: "student is not enrolled in a program"})
	}
	if next.Task, err = svc.tasks.GetTaskByWeek(ctx, programID, next.Week); err != nil {
		return NextWeek{}, err
	}
	return next, nil
}

func (svc *Service) GetAdminStats(ctx context.Context, filter AdminStatsFilter) (AdminStats, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return AdminStats{}, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "must be after from"})
	}
	stats, err := svc.repo.AdminStats(ctx, filter)
	return stats, errors.Wrap(err, "computing admin stats")
}

// PeriodWindow returns the IST window [from, to] of an earnings period containing now.
// Weeks start on Monday.
func PeriodWindow(now time.Time, period string) (from, to time.Time, err error) {
	day := core.StartOfDay(now)
	switch period {
	case PeriodToday:
		from = day
		to = from.AddDate(0, 0, 1)
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		from = day.AddDate(0, 0, -offset)
		to = from.AddDate(0, 0, 7)
	case PeriodMonth:
		from = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, core.IST)
		to = from.AddDate(0, 1, 0)
	case PeriodYear:
		from = time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, core.IST)
		to = from.AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}, core.NewValidationError(nil, core.FieldError{
			Field: "period",
			Error: "period must be one of: today, week, month, year",
		})
	}
	return from, to.Add(-time.Nanosecond), nil
}

// GetReviewerEarnings sums the paid reviews of a reviewer over a period (month by default).
// Daily contains one entry per day of the period, empty days included.
func (svc *Service) GetReviewerEarnings(ctx context.Context, reviewerID, period string) (Earnings, error) {
	period = core.CleanString(period, true)
	if period == "" {
		period = PeriodMonth
	}
	from, to, err := PeriodWindow(svc.now(), period)
	if err != nil {
		return Earnings{}, err
	}
	if _, err = svc.directory.GetReviewer(ctx, reviewerID); err != nil {
		return Earnings{}, err
	}

	days, err := svc.repo.DailyEarnings(ctx, reviewerID, from, to)
	if err != nil {
		return Earnings{}, errors.Wrap(err, "computing daily earnings")
	}
	byDate := make(map[string]DailyEarning, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}

	earnings := Earnings{Period: period, From: from, To: to, TotalEarnings: decimal.Zero}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := core.DateKey(day)
		d, ok := byDate[key]
		if !ok {
			d = DailyEarning{Date: key, Amount: decimal.Zero}
		}
		earnings.Daily = append(earnings.Daily, d)
		earnings.TotalEarnings = earnings.TotalEarnings.Add(d.Amount)
		earnings.TotalReviews += d.Count
	}
	return earnings, nil
}
