// Package dbtest holds the behaviour every repository implementation must share.
// Engines run it from their own tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/tests"
)

type Repos struct {
	Reviews   review.Repository
	Tasks     program.Repository
	Directory directory.Repository
	Config    sysconfig.Repository
}

// Factory returns empty repositories.
type Factory func(t *testing.T) Repos

// Run runs the whole suite against the repositories built by newRepos.
func Run(t *testing.T, newRepos Factory) {
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newRepos) })
	t.Run("ReviewQueries", func(t *testing.T) { testReviewQueries(t, newRepos) })
	t.Run("Scheduling", func(t *testing.T) { testScheduling(t, newRepos) })
	t.Run("Reports", func(t *testing.T) { testReports(t, newRepos) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, newRepos) })
	t.Run("Directory", func(t *testing.T) { testDirectory(t, newRepos) })
	t.Run("Config", func(t *testing.T) { testConfig(t, newRepos) })
}

// day returns 00:00 IST of 2025-01-<d>, truncated to what every engine stores.
func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, core.IST)
}

func sameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %v, got %v", want, got)
}

func testReviews(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()
	student := testutil.CreateStudent(t, repos.Directory, "Asha", "asha@mail.test", "9876543210", "")
	reviewer := testutil.CreateReviewer(t, repos.Directory, "Ravi Kumar", "ravi")
	created := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	r := testutil.CreateReview(t, repos.Reviews, review.TaskReview{
		StudentID:     student.ID,
		ReviewerID:    reviewer.ID,
		ScheduledDate: day(20).UTC(),
		ScheduledTime: "10:30 AM",
		ConfirmedTime: null.StringFrom("11:00 AM"),
		PendingTasks:  []string{"closures"},
		PaymentAmount: decimal.RequireFromString("500.5"),
		ReReviewDetails: review.ReReviewDetails{
			FineAmount: decimal.NewFromInt(100),
			Proof:      null.StringFrom("upi-123"),
		},
		CreatedAt: created,
	})
	require.NotEmpty(t, r.ID)

	got, err := repos.Reviews.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, got.StudentID)
	assert.Equal(t, reviewer.ID, got.ReviewerID)
	assert.Empty(t, got.ProgramTaskID)
	sameInstant(t, day(20), got.ScheduledDate)
	assert.Equal(t, "11:00 AM", got.ConfirmedTime.String)
	assert.False(t, got.ScoreInTheory.Valid)
	assert.Equal(t, []string{"closures"}, got.PendingTasks)
	assert.True(t, decimal.RequireFromString("500.5").Equal(got.PaymentAmount))
	assert.True(t, decimal.NewFromInt(100).Equal(got.ReReviewDetails.FineAmount))
	assert.Equal(t, "upi-123", got.ReReviewDetails.Proof.String)
	assert.False(t, got.ReReviewDetails.PaymentDate.Valid)

	t.Run("unknown or malformed id", func(t *testing.T) {
		for _, id := range []string{"", "nope", "00000000-0000-0000-0000-000000000000", "64b7f0c2a1b2c3d4e5f60718"} {
			_, err := repos.Reviews.GetReview(ctx, id)
			assert.True(t, core.IsNotFound(err), "GetReview(%q) = %v", id, err)
		}
	})

	t.Run("update keeps the reminder flag and creation time", func(t *testing.T) {
		claimed, err := repos.Reviews.MarkReminderSent(ctx, r.ID)
		require.NoError(t, err)
		require.True(t, claimed)

		upd := got
		upd.ReviewerID = ""
		upd.ConfirmedTime = null.String{}
		upd.IsReminderSent = false
		upd.CreatedAt = time.Now()
		upd.ScoreInTheory = null.Float64From(7)
		upd.PendingTasks = []string{}
		upd.UpdatedAt = created.Add(time.Hour)
		res, err := repos.Reviews.UpdateReview(ctx, upd)
		require.NoError(t, err)

		assert.True(t, res.IsReminderSent)
		sameInstant(t, created, res.CreatedAt)
		assert.Empty(t, res.ReviewerID)
		assert.False(t, res.ConfirmedTime.Valid)
		assert.Equal(t, 7.0, res.ScoreInTheory.Float64)
		assert.Empty(t, res.PendingTasks)

		got, err = repos.Reviews.GetReview(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.IsReminderSent)
		assert.Empty(t, got.ReviewerID)
	})

	t.Run("soft deleted reviews are hidden", func(t *testing.T) {
		got.IsActive = false
		_, err := repos.Reviews.UpdateReview(ctx, got)
		require.NoError(t, err)

		_, err = repos.Reviews.GetReview(ctx, r.ID)
		assert.True(t, core.IsNotFound(err))
		_, err = repos.Reviews.MarkReminderSent(ctx, r.ID)
		assert.True(t, core.IsNotFound(err))
	})
}

func testReviewQueries(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()
	asha := testutil.CreateStudent(t, repos.Directory, "Asha", "", "", "")
	bala := testutil.CreateStudent(t, repos.Directory, "Bala", "", "", "")
	ravi := testutil.CreateReviewer(t, repos.Directory, "", "ravi")
	prog := testutil.CreateProgram(t, repos.Directory, "Backend", 24)
	week1 := testutil.CreateProgramTask(t, repos.Tasks, prog.ID, 1, 500, 0)

	mk := func(student directory.Student, d int, mutate func(r *review.TaskReview)) review.TaskReview {
		r := review.TaskReview{
			StudentID:     student.ID,
			ProgramID:     prog.ID,
			ProgramTaskID: week1.ID,
			ScheduledDate: day(d).UTC(),
			ScheduledTime: "10:00 AM",
			CreatedAt:     day(1).Add(time.Duration(d) * time.Minute).UTC(),
		}
		if mutate != nil {
			mutate(&r)
		}
		return testutil.CreateReview(t, repos.Reviews, r)
	}

	r1 := mk(asha, 10, func(r *review.TaskReview) {
		r.ReviewerID = ravi.ID
		r.IsReviewCompleted = true
		r.ReviewStatus = null.StringFrom(review.StatusFailed)
		r.EndDate = null.TimeFrom(day(10).Add(12 * time.Hour).UTC())
	})
	r2 := mk(asha, 12, func(r *review.TaskReview) { r.IsCancelled = true })
	r3 := mk(asha, 14, func(r *review.TaskReview) {
		r.IsReviewCompleted = true
		r.ReviewStatus = null.StringFrom(review.StatusGood)
		r.EndDate = null.TimeFrom(day(14).Add(12 * time.Hour).UTC())
	})
	r4 := mk(bala, 11, nil)
	deleted := mk(bala, 13, nil)
	deleted.IsActive = false
	_, err := repos.Reviews.UpdateReview(ctx, deleted)
	require.NoError(t, err)

	ids := func(reviews []review.TaskReview) []string {
		res := make([]string, 0, len(reviews))
		for _, r := range reviews {
			res = append(res, r.ID)
		}
		return res
	}
	yes := true
	bySchedule := []core.DBOrdering{{Field: "scheduledDate"}}

	tests := []struct {
		name   string
		filter review.QueryFilter
		want   []string
	}{
		{name: "all", want: []string{r3.ID, r2.ID, r4.ID, r1.ID}},
		{name: "student", filter: review.QueryFilter{StudentID: asha.ID}, want: []string{r3.ID, r2.ID, r1.ID}},
		{name: "reviewer", filter: review.QueryFilter{ReviewerID: ravi.ID}, want: []string{r1.ID}},
		{name: "unassigned", filter: review.QueryFilter{Unassigned: true}, want: []string{r3.ID, r2.ID, r4.ID}},
		{name: "program", filter: review.QueryFilter{ProgramID: prog.ID}, want: []string{r3.ID, r2.ID, r4.ID, r1.ID}},
		{name: "completed", filter: review.QueryFilter{IsReviewCompleted: &yes}, want: []string{r3.ID, r1.ID}},
		{name: "status", filter: review.QueryFilter{ReviewStatus: review.StatusFailed}, want: []string{r1.ID}},
		{name: "malformed id", filter: review.QueryFilter{StudentID: "nope"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repos.Reviews.QueryReviews(ctx, tt.filter, bySchedule, core.Page{Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), total)
		})
	}

	t.Run("ordering and pagination", func(t *testing.T) {
		asc := []core.DBOrdering{{Field: "scheduledDate", Ascending: true}}
		got, total, err := repos.Reviews.QueryReviews(ctx, review.QueryFilter{}, asc, core.Page{Page: 2, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{r3.ID}, ids(got))

		got, _, err = repos.Reviews.QueryReviews(ctx, review.QueryFilter{}, asc, core.Page{Page: 3, Limit: 3})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("task reviews exclude cancelled ones", func(t *testing.T) {
		got, err := repos.Reviews.FindTaskReviews(ctx, asha.ID, week1.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{r1.ID, r3.ID}, ids(got))
	})

	t.Run("last completed review", func(t *testing.T) {
		got, err := repos.Reviews.LastCompletedReview(ctx, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, r3.ID, got.ID)

		_, err = repos.Reviews.LastCompletedReview(ctx, bala.ID)
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("open reviews of a task", func(t *testing.T) {
		got, err := repos.Reviews.FindOpenByProgramTask(ctx, week1.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{r4.ID}, ids(got))

		got, err = repos.Reviews.FindOpenByProgramTask(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{r4.ID}, ids(got))
	})
}

func testScheduling(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()
	student := testutil.CreateStudent(t, repos.Directory, "Asha", "", "", "")
	mk := func(scheduled time.Time, mutate func(r *review.TaskReview)) review.TaskReview {
		r := review.TaskReview{StudentID: student.ID, ScheduledDate: scheduled.UTC(), ScheduledTime: "10:00 AM"}
		if mutate != nil {
			mutate(&r)
		}
		return testutil.CreateReview(t, repos.Reviews, r)
	}

	today := mk(day(20), nil)
	reminded := mk(day(20), func(r *review.TaskReview) { r.IsReminderSent = true })
	mk(day(20), func(r *review.TaskReview) { r.IsCancelled = true })
	mk(day(20), func(r *review.TaskReview) { r.IsReviewCompleted = true })
	mk(day(19), nil)
	mk(day(21), nil)

	filter := review.ScheduleFilter{From: core.StartOfDay(day(20)), To: core.EndOfDay(day(20))}
	got, err := repos.Reviews.FindScheduled(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	filter.OnlyUnreminded = true
	got, err = repos.Reviews.FindScheduled(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, today.ID, got[0].ID)

	claimed, err := repos.Reviews.MarkReminderSent(ctx, today.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repos.Reviews.MarkReminderSent(ctx, today.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "a reminder is only claimed once")
	claimed, err = repos.Reviews.MarkReminderSent(ctx, reminded.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func testReports(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()
	student := testutil.CreateStudent(t, repos.Directory, "Asha", "", "", "")
	ravi := testutil.CreateReviewer(t, repos.Directory, "", "ravi")
	other := testutil.CreateReviewer(t, repos.Directory, "", "mira")

	mk := func(mutate func(r *review.TaskReview)) {
		r := review.TaskReview{StudentID: student.ID, ScheduledDate: day(15).UTC(), ScheduledTime: "10:00 AM"}
		mutate(&r)
		testutil.CreateReview(t, repos.Reviews, r)
	}
	paid := func(reviewer string, end time.Time, amount int64) func(r *review.TaskReview) {
		return func(r *review.TaskReview) {
			r.ReviewerID = reviewer
			r.IsReviewCompleted = true
			r.IsPaymentCompleted = true
			r.PaymentAmount = decimal.NewFromInt(amount)
			r.EndDate = null.TimeFrom(end.UTC())
		}
	}

	// 23:00 IST on the 15th and 00:30 IST on the 16th are the same UTC day
	mk(paid(ravi.ID, day(15).Add(23*time.Hour), 500))
	mk(paid(ravi.ID, day(16).Add(30*time.Minute), 300))
	mk(paid(ravi.ID, day(16).Add(10*time.Hour), 200))
	mk(paid(other.ID, day(16).Add(10*time.Hour), 999))
	mk(func(r *review.TaskReview) {
		r.ReviewerID = ravi.ID
		r.IsReviewCompleted = true
		r.PaymentAmount = decimal.NewFromInt(120)
		r.EndDate = null.TimeFrom(day(16).Add(11 * time.Hour).UTC())
	})
	mk(func(r *review.TaskReview) {})
	mk(func(r *review.TaskReview) { r.IsCancelled = true })
	mk(func(r *review.TaskReview) {
		r.ScheduledDate = day(25).UTC()
		r.ReviewerID = other.ID
	})

	t.Run("daily earnings group by IST day", func(t *testing.T) {
		days, err := repos.Reviews.DailyEarnings(ctx, ravi.ID, day(1), core.EndOfDay(day(31)))
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.Equal(t, "2025-01-15", days[0].Date)
		assert.True(t, decimal.NewFromInt(500).Equal(days[0].Amount))
		assert.Equal(t, 1, days[0].Count)
		assert.Equal(t, "2025-01-16", days[1].Date)
		assert.True(t, decimal.NewFromInt(500).Equal(days[1].Amount))
		assert.Equal(t, 2, days[1].Count)

		days, err = repos.Reviews.DailyEarnings(ctx, ravi.ID, day(16), core.EndOfDay(day(16)))
		require.NoError(t, err)
		require.Len(t, days, 1)
	})

	t.Run("admin stats", func(t *testing.T) {
		stats, err := repos.Reviews.AdminStats(ctx, review.AdminStatsFilter{})
		require.NoError(t, err)
		assert.Equal(t, 5, stats.TotalCompletedReviews)
		assert.Equal(t, 1, stats.TotalUnassignedReviews)
		assert.Equal(t, 1, stats.PendingPayment.Count)
		assert.True(t, decimal.NewFromInt(120).Equal(stats.PendingPayment.Amount))

		from, to := day(20), core.EndOfDay(day(31))
		stats, err = repos.Reviews.AdminStats(ctx, review.AdminStatsFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalCompletedReviews)
		assert.Equal(t, 0, stats.TotalUnassignedReviews)
		assert.True(t, stats.PendingPayment.Amount.IsZero())
	})
}

func testTasks(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()
	prog := testutil.CreateProgram(t, repos.Directory, "Backend", 24)
	other := testutil.CreateProgram(t, repos.Directory, "Frontend", 12)

	week2 := testutil.CreateProgramTask(t, repos.Tasks, prog.ID, 2, 0, 250)
	week1 := testutil.CreateProgramTask(t, repos.Tasks, prog.ID, 1, 500, 0, "closures", "interfaces")
	testutil.CreateProgramTask(t, repos.Tasks, other.ID, 1, 400, 0)

	got, err := repos.Tasks.GetTask(ctx, week1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"closures", "interfaces"}, got.Tasks)
	assert.True(t, decimal.NewFromInt(500).Equal(got.Cost))
	assert.True(t, got.ReReviewFineAmount.IsZero())

	got, err = repos.Tasks.GetTaskByWeek(ctx, prog.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, week2.ID, got.ID)
	_, err = repos.Tasks.GetTaskByWeek(ctx, prog.ID, 3)
	assert.True(t, core.IsNotFound(err))
	_, err = repos.Tasks.GetTask(ctx, "nope")
	assert.True(t, core.IsNotFound(err))

	tasks, err := repos.Tasks.QueryTasks(ctx, prog.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, week1.ID, tasks[0].ID)
	assert.Equal(t, week2.ID, tasks[1].ID)

	t.Run("one active task per week", func(t *testing.T) {
		_, err := repos.Tasks.CreateTask(ctx, program.Task{
			Name: "Week 1 again", Week: 1, ProgramID: prog.ID, IsActive: true,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		})
		assert.Equal(t, program.ErrDuplicateWeek, err)

		moved := week2
		moved.Week = 1
		_, err = repos.Tasks.UpdateTask(ctx, moved)
		assert.Equal(t, program.ErrDuplicateWeek, err)

		// a retired week can be reused
		retired := week1
		retired.IsActive = false
		_, err = repos.Tasks.UpdateTask(ctx, retired)
		require.NoError(t, err)
		_, err = repos.Tasks.UpdateTask(ctx, moved)
		require.NoError(t, err)

		got, err := repos.Tasks.GetTask(ctx, week1.ID)
		require.NoError(t, err, "retired tasks stay reachable by id")
		assert.False(t, got.IsActive)
	})
}

func testDirectory(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()
	prog := testutil.CreateProgram(t, repos.Directory, "Backend", 24)
	batch := testutil.CreateBatch(t, repos.Directory, "BCK-101", prog.ID)
	student := testutil.CreateStudent(t, repos.Directory, "Asha", "asha@mail.test", "9876543210", prog.ID, batch.ID)
	reviewer := testutil.CreateReviewer(t, repos.Directory, "Ravi Kumar", "ravi")

	s, err := repos.Directory.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", s.Name)
	assert.Equal(t, directory.StudentTypeBatch, s.Type)
	assert.Equal(t, batch.ID, s.BatchID)
	assert.Equal(t, prog.ID, s.ProgramID)
	assert.Equal(t, "9876543210", s.MobileNo)

	rv, err := repos.Directory.GetReviewer(ctx, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", rv.DisplayName())
	assert.Equal(t, "ravi@mentorbro.test", rv.Email)

	p, err := repos.Directory.GetProgram(ctx, prog.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, p.TotalWeeks)

	b, err := repos.Directory.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "BCK-101", b.Name)

	_, err = repos.Directory.GetStudent(ctx, reviewer.ID)
	assert.Equal(t, directory.ErrStudentNotFound, err)
	_, err = repos.Directory.GetReviewer(ctx, "nope")
	assert.Equal(t, directory.ErrReviewerNotFound, err)
}

func testConfig(t *testing.T, newRepos Factory) {
	repos := newRepos(t)
	ctx := context.Background()

	_, err := repos.Config.GetActiveConfig(ctx)
	assert.Equal(t, sysconfig.ErrNotFound, err)

	conf := sysconfig.Default()
	conf.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	conf.UpdatedAt = conf.CreatedAt
	created, err := repos.Config.CreateConfig(ctx, conf)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = repos.Config.CreateConfig(ctx, conf)
	assert.Equal(t, sysconfig.ErrAlreadyExists, err, "a single active document")

	created.Whapi.Token = "tok"
	created.ReceiveMessageOnWhatsappInReviewSchedule = false
	created.CreatedAt = time.Now()
	_, err = repos.Config.UpdateConfig(ctx, created)
	require.NoError(t, err)

	got, err := repos.Config.GetActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "tok", got.Whapi.Token)
	assert.Equal(t, "https://gate.whapi.cloud", got.Whapi.APIURL)
	assert.Equal(t, "MentorBro", got.Email.SenderName)
	assert.False(t, got.ReceiveMessageOnWhatsappInReviewSchedule)
	assert.True(t, got.SendMailOnReviewerAssignToStudent)
	sameInstant(t, conf.CreatedAt, got.CreatedAt)
}
