package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/review"
)

var reviewColumns = []string{
	"id", "student_id", "program_id", "program_task_id", "reviewer_id",
	"scheduled_date", "scheduled_time", "second_scheduled_date", "second_scheduled_time", "confirmed_time",
	"score_in_theory", "score_in_practical", "review_status", "practical_improvement", "theory_improvement", "pending_tasks",
	"is_review_completed", "is_cancelled", "cancel_reason", "is_active", "is_re_review",
	"payment_amount", "is_payment_ordered", "is_payment_completed",
	"re_review_fine_amount", "re_review_payment_date", "re_review_proof",
	"is_reminder_sent", "end_date", "end_time", "created_at", "updated_at",
}

// reviewUpdateColumns leaves out what UpdateReview must never overwrite.
var reviewUpdateColumns = func() []string {
	cols := make([]string, 0, len(reviewColumns))
	for _, c := range reviewColumns {
		switch c {
		case "id", "is_reminder_sent", "created_at":
		default:
			cols = append(cols, c)
		}
	}
	return cols
}()

var reviewOrderColumns = map[string]string{
	"scheduledDate": "scheduled_date",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"endDate":       "end_date",
	"paymentAmount": "payment_amount",
}

type reviewRow struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"student_id"`
	ProgramID     null.String `db:"program_id"`
	ProgramTaskID null.String `db:"program_task_id"`
	ReviewerID    null.String `db:"reviewer_id"`

	ScheduledDate       time.Time   `db:"scheduled_date"`
	ScheduledTime       string      `db:"scheduled_time"`
	SecondScheduledDate null.Time   `db:"second_scheduled_date"`
	SecondScheduledTime null.String `db:"second_scheduled_time"`
	ConfirmedTime       null.String `db:"confirmed_time"`

	ScoreInTheory        null.Float64   `db:"score_in_theory"`
	ScoreInPractical     null.Float64   `db:"score_in_practical"`
	ReviewStatus         null.String    `db:"review_status"`
	PracticalImprovement string         `db:"practical_improvement"`
	TheoryImprovement    string         `db:"theory_improvement"`
	PendingTasks         pq.StringArray `db:"pending_tasks"`

	IsReviewCompleted bool        `db:"is_review_completed"`
	IsCancelled       bool        `db:"is_cancelled"`
	CancelReason      null.String `db:"cancel_reason"`
	IsActive          bool        `db:"is_active"`
	IsReReview        bool        `db:"is_re_review"`

	PaymentAmount       decimal.Decimal `db:"payment_amount"`
	IsPaymentOrdered    bool            `db:"is_payment_ordered"`
	IsPaymentCompleted  bool            `db:"is_payment_completed"`
	ReReviewFineAmount  decimal.Decimal `db:"re_review_fine_amount"`
	ReReviewPaymentDate null.Time       `db:"re_review_payment_date"`
	ReReviewProof       null.String     `db:"re_review_proof"`

	IsReminderSent bool        `db:"is_reminder_sent"`
	EndDate        null.Time   `db:"end_date"`
	EndTime        null.String `db:"end_time"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo reviewRepository) toRow(r review.TaskReview) reviewRow {
	return reviewRow{
		ID:                   r.ID,
		StudentID:            r.StudentID,
		ProgramID:            nullID(r.ProgramID),
		ProgramTaskID:        nullID(r.ProgramTaskID),
		ReviewerID:           nullID(r.ReviewerID),
		ScheduledDate:        r.ScheduledDate.UTC(),
		ScheduledTime:        r.ScheduledTime,
		SecondScheduledDate:  r.SecondScheduledDate,
		SecondScheduledTime:  r.SecondScheduledTime,
		ConfirmedTime:        r.ConfirmedTime,
		ScoreInTheory:        r.ScoreInTheory,
		ScoreInPractical:     r.ScoreInPractical,
		ReviewStatus:         r.ReviewStatus,
		PracticalImprovement: r.PracticalImprovement,
		TheoryImprovement:    r.TheoryImprovement,
		PendingTasks:         emptyIfNil(r.PendingTasks),
		IsReviewCompleted:    r.IsReviewCompleted,
		IsCancelled:          r.IsCancelled,
		CancelReason:         r.CancelReason,
		IsActive:             r.IsActive,
		IsReReview:           r.IsReReview,
		PaymentAmount:        r.PaymentAmount,
		IsPaymentOrdered:     r.IsPaymentOrderd,
		IsPaymentCompleted:   r.IsPaymentCompleted,
		ReReviewFineAmount:   r.ReReviewDetails.FineAmount,
		ReReviewPaymentDate:  r.ReReviewDetails.PaymentDate,
		ReReviewProof:        r.ReReviewDetails.Proof,
		IsReminderSent:       r.IsReminderSent,
		EndDate:              r.EndDate,
		EndTime:              r.EndTime,
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
}

func (repo reviewRepository) fromRow(row reviewRow) review.TaskReview {
	return review.TaskReview{
		ID:                   row.ID,
		StudentID:            row.StudentID,
		ProgramID:            row.ProgramID.String,
		ProgramTaskID:        row.ProgramTaskID.String,
		ReviewerID:           row.ReviewerID.String,
		ScheduledDate:        row.ScheduledDate,
		ScheduledTime:        row.ScheduledTime,
		SecondScheduledDate:  row.SecondScheduledDate,
		SecondScheduledTime:  row.SecondScheduledTime,
		ConfirmedTime:        row.ConfirmedTime,
		ScoreInTheory:        row.ScoreInTheory,
		ScoreInPractical:     row.ScoreInPractical,
		ReviewStatus:         row.ReviewStatus,
		PracticalImprovement: row.PracticalImprovement,
		TheoryImprovement:    row.TheoryImprovement,
		PendingTasks:         emptyIfNil(row.PendingTasks),
		IsReviewCompleted:    row.IsReviewCompleted,
		IsCancelled:          row.IsCancelled,
		CancelReason:         row.CancelReason,
		IsActive:             row.IsActive,
		IsReReview:           row.IsReReview,
		PaymentAmount:        row.PaymentAmount,
		IsPaymentOrderd:      row.IsPaymentOrdered,
		IsPaymentCompleted:   row.IsPaymentCompleted,
		ReReviewDetails: review.ReReviewDetails{
			FineAmount:  row.ReReviewFineAmount,
			PaymentDate: row.ReReviewPaymentDate,
			Proof:       row.ReReviewProof,
		},
		IsReminderSent: row.IsReminderSent,
		EndDate:        row.EndDate,
		EndTime:        row.EndTime,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func (repo reviewRepository) fromRows(rows []reviewRow) []review.TaskReview {
	reviews := make([]review.TaskReview, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, repo.fromRow(row))
	}
	return reviews
}

func (repo reviewRepository) selectReviews(ctx context.Context, where string, args []interface{}, suffix string) ([]review.TaskReview, error) {
	q := "SELECT " + columnList(reviewColumns) + " FROM task_review WHERE " + where + " " + suffix
	var rows []reviewRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting reviews")
	}
	return repo.fromRows(rows), nil
}

func (repo reviewRepository) CreateReview(ctx context.Context, r review.TaskReview) (review.TaskReview, error) {
	r.ID = uuid.New().String()
	q := "INSERT INTO task_review (" + columnList(reviewColumns) + ") VALUES (" + namedList(reviewColumns) + ")" +
		" RETURNING " + columnList(reviewColumns)

	var row reviewRow
	if err := namedGet(ctx, repo.db, &row, q, repo.toRow(r)); err != nil {
		return review.TaskReview{}, errors.Wrap(err, "inserting review")
	}
	return repo.fromRow(row), nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string) (review.TaskReview, error) {
	if !validID(id) {
		return review.TaskReview{}, review.ErrNotFound
	}
	q := "SELECT " + columnList(reviewColumns) + " FROM task_review WHERE id = $1 AND is_active"
	var row reviewRow
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return review.TaskReview{}, trapNoRowsErr(err, review.ErrNotFound, "getting review")
	}
	return repo.fromRow(row), nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, r review.TaskReview) (review.TaskReview, error) {
	if !validID(r.ID) {
		return review.TaskReview{}, review.ErrNotFound
	}
	q := "UPDATE task_review SET " + namedSet(reviewUpdateColumns) + " WHERE id = :id RETURNING " + columnList(reviewColumns)

	var row reviewRow
	if err := namedGet(ctx, repo.db, &row, q, repo.toRow(r)); err != nil {
		return review.TaskReview{}, trapNoRowsErr(err, review.ErrNotFound, "updating review")
	}
	return repo.fromRow(row), nil
}

func (repo reviewRepository) QueryReviews(
	ctx context.Context,
	filter review.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]review.TaskReview, int, error) {
	where := []string{"is_active"}
	var args []interface{}
	for col, id := range map[string]string{
		"student_id":  filter.StudentID,
		"reviewer_id": filter.ReviewerID,
		"program_id":  filter.ProgramID,
	} {
		if id == "" {
			continue
		}
		if !validID(id) {
			return []review.TaskReview{}, 0, nil
		}
		where = append(where, col+" = ?")
		args = append(args, id)
	}
	if filter.Unassigned {
		where = append(where, "reviewer_id IS NULL")
	}
	if filter.IsReviewCompleted != nil {
		where = append(where, "is_review_completed = ?")
		args = append(args, *filter.IsReviewCompleted)
	}
	if filter.ReviewStatus != "" {
		where = append(where, "review_status = ?")
		args = append(args, filter.ReviewStatus)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind("SELECT COUNT(*) FROM task_review WHERE "+cond), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting reviews")
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := reviewOrderColumns[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderList = append(orderList, "created_at DESC")

	reviews, err := repo.selectReviews(
		ctx, cond, append(args, page.Limit, page.Offset()),
		"ORDER BY "+strings.Join(orderList, ", ")+" LIMIT ? OFFSET ?",
	)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (repo reviewRepository) FindTaskReviews(ctx context.Context, studentID, programTaskID string) ([]review.TaskReview, error) {
	if !validID(studentID) || !validID(programTaskID) {
		return []review.TaskReview{}, nil
	}
	return repo.selectReviews(
		ctx, "is_active AND NOT is_cancelled AND student_id = ? AND program_task_id = ?",
		[]interface{}{studentID, programTaskID}, "ORDER BY created_at",
	)
}

func (repo reviewRepository) LastCompletedReview(ctx context.Context, studentID string) (review.TaskReview, error) {
	if !validID(studentID) {
		return review.TaskReview{}, review.ErrNotFound
	}
	reviews, err := repo.selectReviews(
		ctx, "is_active AND is_review_completed AND NOT is_cancelled AND student_id = ?",
		[]interface{}{studentID}, "ORDER BY end_date DESC NULLS LAST, updated_at DESC LIMIT 1",
	)
	if err != nil {
		return review.TaskReview{}, err
	}
	if len(reviews) == 0 {
		return review.TaskReview{}, review.ErrNotFound
	}
	return reviews[0], nil
}

const pendingCond = "is_active AND NOT is_cancelled AND NOT is_review_completed"

func (repo reviewRepository) FindScheduled(ctx context.Context, filter review.ScheduleFilter) ([]review.TaskReview, error) {
	cond := pendingCond + " AND scheduled_date >= ? AND scheduled_date <= ?"
	if filter.OnlyUnreminded {
		cond += " AND NOT is_reminder_sent"
	}
	return repo.selectReviews(ctx, cond, []interface{}{filter.From.UTC(), filter.To.UTC()}, "ORDER BY scheduled_date")
}

func (repo reviewRepository) FindOpenByProgramTask(ctx context.Context, programTaskID string) ([]review.TaskReview, error) {
	if programTaskID == "" {
		return repo.selectReviews(ctx, pendingCond, nil, "ORDER BY created_at")
	}
	if !validID(programTaskID) {
		return []review.TaskReview{}, nil
	}
	return repo.selectReviews(ctx, pendingCond+" AND program_task_id = ?", []interface{}{programTaskID}, "ORDER BY created_at")
}

func (repo reviewRepository) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, review.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		"UPDATE task_review SET is_reminder_sent = true WHERE id = $1 AND is_active AND NOT is_reminder_sent", id)
	if err != nil {
		return false, errors.Wrap(err, "marking reminder sent")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking reminder sent")
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM task_review WHERE id = $1 AND is_active)", id); err != nil {
		return false, errors.Wrap(err, "checking review")
	}
	if !exists {
		return false, review.ErrNotFound
	}
	return false, nil
}

func (repo reviewRepository) AdminStats(ctx context.Context, filter review.AdminStatsFilter) (review.AdminStats, error) {
	cond := "is_active AND NOT is_cancelled"
	var args []interface{}
	if filter.From != nil {
		cond += " AND scheduled_date >= ?"
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		cond += " AND scheduled_date <= ?"
		args = append(args, filter.To.UTC())
	}

	q := `SELECT
		COUNT(*) FILTER (WHERE is_review_completed) AS completed,
		COUNT(*) FILTER (WHERE NOT is_review_completed AND reviewer_id IS NULL) AS unassigned,
		COUNT(*) FILTER (WHERE is_review_completed AND NOT is_payment_completed) AS pending_count,
		COALESCE(SUM(payment_amount) FILTER (WHERE is_review_completed AND NOT is_payment_completed), 0) AS pending_amount
		FROM task_review WHERE ` + cond

	var row struct {
		Completed     int             `db:"completed"`
		Unassigned    int             `db:"unassigned"`
		PendingCount  int             `db:"pending_count"`
		PendingAmount decimal.Decimal `db:"pending_amount"`
	}
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), args...); err != nil {
		return review.AdminStats{}, errors.Wrap(err, "computing admin stats")
	}
	return review.AdminStats{
		PendingPayment:         review.PendingPayment{Amount: row.PendingAmount, Count: row.PendingCount},
		TotalCompletedReviews:  row.Completed,
		TotalUnassignedReviews: row.Unassigned,
	}, nil
}

func (repo reviewRepository) DailyEarnings(ctx context.Context, reviewerID string, from, to time.Time) ([]review.DailyEarning, error) {
	if !validID(reviewerID) {
		return []review.DailyEarning{}, nil
	}
	// IST calendar day of the end date
	q := `SELECT
		to_char((end_date AT TIME ZONE 'UTC') + INTERVAL '330 minutes', 'YYYY-MM-DD') AS date,
		SUM(payment_amount) AS amount,
		COUNT(*) AS count
		FROM task_review
		WHERE is_active AND is_payment_completed AND reviewer_id = $1 AND end_date >= $2 AND end_date <= $3
		GROUP BY 1 ORDER BY 1`

	var days []review.DailyEarning
	rows, err := repo.db.QueryxContext(ctx, q, reviewerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "computing daily earnings")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var d review.DailyEarning
		if err = rows.Scan(&d.Date, &d.Amount, &d.Count); err != nil {
			return nil, errors.Wrap(err, "scanning daily earnings")
		}
		days = append(days, d)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning daily earnings")
	}
	if days == nil {
		days = []review.DailyEarning{}
	}
	return days, nil
}
