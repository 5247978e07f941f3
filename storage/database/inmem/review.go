package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/review"
)

type reviewRepository struct {
	db *reviewTable
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db.review}
}

func cloneReview(r review.TaskReview) review.TaskReview {
	r.PendingTasks = copyStrings(r.PendingTasks)
	return r
}

// query returns copies of the active reviews matching all predicates.
func (repo *reviewRepository) query(preds ...func(r *review.TaskReview) bool) []review.TaskReview {
	res := make([]review.TaskReview, 0)
outer:
	for _, r := range repo.db.table {
		if !r.IsActive {
			continue
		}
		for _, pred := range preds {
			if !pred(r) {
				continue outer
			}
		}
		res = append(res, cloneReview(*r))
	}
	return res
}

func (repo *reviewRepository) CreateReview(_ context.Context, r review.TaskReview) (review.TaskReview, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r.ID = newID()
	r = cloneReview(r)
	repo.db.table[r.ID] = &r
	return cloneReview(r), nil
}

func (repo *reviewRepository) GetReview(_ context.Context, id string) (review.TaskReview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.table[id]; ok && r.IsActive {
		return cloneReview(*r), nil
	}
	return review.TaskReview{}, review.ErrNotFound
}

func (repo *reviewRepository) UpdateReview(_ context.Context, r review.TaskReview) (review.TaskReview, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[r.ID]
	if !ok {
		return review.TaskReview{}, review.ErrNotFound
	}
	r = cloneReview(r)
	r.IsReminderSent = orig.IsReminderSent
	r.CreatedAt = orig.CreatedAt
	repo.db.table[r.ID] = &r
	return cloneReview(r), nil
}

func compareReviews(a, b review.TaskReview, field string) int {
	cmpTime := func(x, y time.Time) int {
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	}
	switch field {
	case "createdAt":
		return cmpTime(a.CreatedAt, b.CreatedAt)
	case "updatedAt":
		return cmpTime(a.UpdatedAt, b.UpdatedAt)
	case "endDate":
		return cmpTime(a.EndDate.Time, b.EndDate.Time)
	case "paymentAmount":
		return a.PaymentAmount.Cmp(b.PaymentAmount)
	default:
		return cmpTime(a.ScheduledDate, b.ScheduledDate)
	}
}

func (repo *reviewRepository) QueryReviews(
	_ context.Context,
	filter review.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]review.TaskReview, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := repo.query(func(r *review.TaskReview) bool {
		switch {
		case filter.StudentID != "" && r.StudentID != filter.StudentID,
			filter.Unassigned && r.ReviewerID != "",
			filter.ReviewerID != "" && r.ReviewerID != filter.ReviewerID,
			filter.ProgramID != "" && r.ProgramID != filter.ProgramID,
			filter.IsReviewCompleted != nil && r.IsReviewCompleted != *filter.IsReviewCompleted,
			filter.ReviewStatus != "" && r.ReviewStatus.String != filter.ReviewStatus:
			return false
		}
		return true
	})

	sort.SliceStable(reviews, func(i, j int) bool {
		for _, o := range ordering {
			c := compareReviews(reviews[i], reviews[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})

	total := len(reviews)
	start := page.Offset()
	if start >= total {
		return []review.TaskReview{}, total, nil
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return reviews[start:end], total, nil
}

func (repo *reviewRepository) FindTaskReviews(_ context.Context, studentID, programTaskID string) ([]review.TaskReview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(r *review.TaskReview) bool {
		return r.StudentID == studentID && r.ProgramTaskID == programTaskID && !r.IsCancelled
	}), nil
}

func (repo *reviewRepository) LastCompletedReview(_ context.Context, studentID string) (review.TaskReview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	completed := repo.query(func(r *review.TaskReview) bool {
		return r.StudentID == studentID && r.IsReviewCompleted && !r.IsCancelled
	})
	if len(completed) == 0 {
		return review.TaskReview{}, review.ErrNotFound
	}
	sort.Slice(completed, func(i, j int) bool {
		a, b := completed[i], completed[j]
		if !a.EndDate.Time.Equal(b.EndDate.Time) {
			return a.EndDate.Time.After(b.EndDate.Time)
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
	return completed[0], nil
}

func isPending(r *review.TaskReview) bool {
	return !r.IsCancelled && !r.IsReviewCompleted
}

func (repo *reviewRepository) FindScheduled(_ context.Context, filter review.ScheduleFilter) ([]review.TaskReview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := repo.query(isPending, func(r *review.TaskReview) bool {
		return !r.ScheduledDate.Before(filter.From) &&
			!r.ScheduledDate.After(filter.To) &&
			!(filter.OnlyUnreminded && r.IsReminderSent)
	})
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ScheduledDate.Before(reviews[j].ScheduledDate) })
	return reviews, nil
}

func (repo *reviewRepository) FindOpenByProgramTask(_ context.Context, programTaskID string) ([]review.TaskReview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(isPending, func(r *review.TaskReview) bool {
		return programTaskID == "" || r.ProgramTaskID == programTaskID
	}), nil
}

func (repo *reviewRepository) MarkReminderSent(_ context.Context, id string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.table[id]
	if !ok || !r.IsActive {
		return false, review.ErrNotFound
	}
	if r.IsReminderSent {
		return false, nil
	}
	r.IsReminderSent = true
	return true, nil
}

func (repo *reviewRepository) AdminStats(_ context.Context, filter review.AdminStatsFilter) (review.AdminStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := repo.query(func(r *review.TaskReview) bool {
		return (filter.From == nil || !r.ScheduledDate.Before(*filter.From)) &&
			(filter.To == nil || !r.ScheduledDate.After(*filter.To))
	})

	stats := review.AdminStats{PendingPayment: review.PendingPayment{Amount: decimal.Zero}}
	for _, r := range reviews {
		if r.IsCancelled {
			continue
		}
		if r.IsReviewCompleted {
			stats.TotalCompletedReviews++
			if !r.IsPaymentCompleted {
				stats.PendingPayment.Count++
				stats.PendingPayment.Amount = stats.PendingPayment.Amount.Add(r.PaymentAmount)
			}
		} else if !r.IsAssigned() {
			stats.TotalUnassignedReviews++
		}
	}
	return stats, nil
}

func (repo *reviewRepository) DailyEarnings(_ context.Context, reviewerID string, from, to time.Time) ([]review.DailyEarning, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := repo.query(func(r *review.TaskReview) bool {
		return r.ReviewerID == reviewerID &&
			r.IsPaymentCompleted &&
			r.EndDate.Valid &&
			!r.EndDate.Time.Before(from) &&
			!r.EndDate.Time.After(to)
	})

	byDate := make(map[string]*review.DailyEarning)
	for _, r := range reviews {
		key := core.DateKey(r.EndDate.Time)
		d, ok := byDate[key]
		if !ok {
			d = &review.DailyEarning{Date: key, Amount: decimal.Zero}
			byDate[key] = d
		}
		d.Amount = d.Amount.Add(r.PaymentAmount)
		d.Count++
	}

	days := make([]review.DailyEarning, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}
