package review_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/storage/database/inmem"
	"github.com/trezcool/mentorbro/tests"
)

const groupRecipient = "120363417698652224@g.us"

// Monday 20 January 2025, 10:00 IST
var now = time.Date(2025, 1, 20, 10, 0, 0, 0, core.IST)

func nullString(s string) null.String { return null.StringFrom(s) }
func nullTime(t time.Time) null.Time  { return null.TimeFrom(t.UTC()) }

type mailRecorder struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

type fixture struct {
	svc       *review.Service
	reviews   review.Repository
	tasks     program.Repository
	dir       directory.Repository
	settings  *sysconfig.Service
	transport *notify.Recorder
	mailer    *mailRecorder

	program  directory.Program
	student  directory.Student
	reviewer directory.Reviewer
	week1    program.Task
	week2    program.Task
}

func setup(t *testing.T) *fixture {
	db := inmemdb.Open()
	validate := core.NewValidator(core.NewTranslator())

	f := &fixture{
		reviews:   inmemdb.NewReviewRepository(db),
		tasks:     inmemdb.NewTaskRepository(db),
		dir:       inmemdb.NewDirectoryRepository(db),
		transport: notify.NewRecorder(),
		mailer:    &mailRecorder{},
	}
	f.settings = sysconfig.NewService(inmemdb.NewConfigRepository(db), validate)
	f.svc = review.NewServiceMock(review.Deps{
		Repo:           f.reviews,
		Tasks:          f.tasks,
		Directory:      f.dir,
		Settings:       f.settings,
		Transport:      f.transport,
		Mailer:         f.mailer,
		Logger:         testutil.NewLogger(t),
		Validate:       validate,
		GroupRecipient: groupRecipient,
		Now:            func() time.Time { return now },
	})

	f.program = testutil.CreateProgram(t, f.dir, "Golang", 24)
	batch := testutil.CreateBatch(t, f.dir, "BCK-101", f.program.ID)
	f.student = testutil.CreateStudent(t, f.dir, "Asha", "asha@mail.test", "9876543210", f.program.ID, batch.ID)
	f.reviewer = testutil.CreateReviewer(t, f.dir, "Ravi Kumar", "ravi")
	f.week1 = testutil.CreateProgramTask(t, f.tasks, f.program.ID, 1, 500, 0, "closures", "interfaces")
	f.week2 = testutil.CreateProgramTask(t, f.tasks, f.program.ID, 2, 0, 250)
	return f
}

func (f *fixture) newReview(taskID string) review.NewTaskReview {
	return review.NewTaskReview{
		StudentID:     f.student.ID,
		ProgramTaskID: taskID,
		ScheduledDate: core.FlexTime{Time: time.Date(2025, 1, 21, 0, 0, 0, 0, core.IST)},
		ScheduledTime: "10:30 AM",
	}
}

func (f *fixture) disableWhatsapp(t *testing.T) {
	off := false
	_, err := f.settings.Update(context.Background(), sysconfig.Update{ReceiveMessageOnWhatsappInReviewSchedule: &off})
	require.NoError(t, err)
}

func TestService_Create_payment(t *testing.T) {
	d := decimal.NewFromInt

	tests := []struct {
		name        string
		week        int
		isReReview  bool
		wantPayment decimal.Decimal
		wantFine    decimal.Decimal
	}{
		{name: "first attempt pays the task cost", week: 1, wantPayment: d(500), wantFine: d(0)},
		{name: "first attempt, cost unset", week: 2, wantPayment: d(0), wantFine: d(0)},
		{name: "re-review, fine unset", week: 1, isReReview: true, wantPayment: d(500), wantFine: d(100)},
		{name: "re-review with fine", week: 2, isReReview: true, wantPayment: d(120), wantFine: d(250)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			task := f.week1
			if tt.week == 2 {
				task = f.week2
			}
			nr := f.newReview(task.ID)
			nr.IsReReview = tt.isReReview

			got, err := f.svc.Create(context.Background(), nr)
			require.NoError(t, err)
			assert.True(t, tt.wantPayment.Equal(got.PaymentAmount), "paymentAmount = %v, want %v", got.PaymentAmount, tt.wantPayment)
			assert.True(t, tt.wantFine.Equal(got.ReReviewDetails.FineAmount), "fineAmount = %v, want %v", got.ReReviewDetails.FineAmount, tt.wantFine)
		})
	}
}

func TestService_Create_populates(t *testing.T) {
	f := setup(t)
	got, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, f.program.ID, got.ProgramID, "program defaults to the task's")
	assert.True(t, got.IsActive)
	assert.False(t, got.IsReminderSent)
	if assert.NotNil(t, got.Student) {
		assert.Equal(t, "Asha", got.Student.Name)
	}
	if assert.NotNil(t, got.ProgramTask) {
		assert.Equal(t, 1, got.ProgramTask.Week)
	}
	assert.Nil(t, got.Reviewer)
}

func TestService_Create_singleOpenReviewPerTask(t *testing.T) {
	tests := []struct {
		name     string
		existing review.TaskReview
		wantErr  error
	}{
		{name: "pending review blocks", existing: review.TaskReview{}, wantErr: review.ErrReReviewNotAllowed},
		{name: "completed review blocks", existing: review.TaskReview{IsReviewCompleted: true, ReviewStatus: nullString("good")}, wantErr: review.ErrReReviewNotAllowed},
		{name: "need improvements blocks", existing: review.TaskReview{IsReviewCompleted: true, ReviewStatus: nullString("need_improvements")}, wantErr: review.ErrReReviewNotAllowed},
		{name: "failed review allows a re-attempt", existing: review.TaskReview{IsReviewCompleted: true, ReviewStatus: nullString("failed")}},
		{name: "cancelled review allows a new attempt", existing: review.TaskReview{IsCancelled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			existing := tt.existing
			existing.StudentID = f.student.ID
			existing.ProgramTaskID = f.week1.ID
			existing.ScheduledDate = now
			existing.ScheduledTime = "09:00 AM"
			testutil.CreateReview(t, f.reviews, existing)

			_, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.True(t, core.IsConflict(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_Create_onlyOneReAttemptAfterFailure(t *testing.T) {
	f := setup(t)
	testutil.CreateReview(t, f.reviews, review.TaskReview{
		StudentID:         f.student.ID,
		ProgramTaskID:     f.week1.ID,
		ScheduledDate:     now,
		ScheduledTime:     "09:00 AM",
		IsReviewCompleted: true,
		ReviewStatus:      nullString(review.StatusFailed),
	})

	nr := f.newReview(f.week1.ID)
	nr.IsReReview = true
	_, err := f.svc.Create(context.Background(), nr)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), nr)
	assert.Equal(t, review.ErrReReviewNotAllowed, err)
}

func TestService_Create_errors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name         string
		mutate       func(nr *review.NewTaskReview)
		wantNotFound bool
		wantInvalid  bool
	}{
		{name: "unknown student", mutate: func(nr *review.NewTaskReview) { nr.StudentID = "nope" }, wantNotFound: true},
		{name: "unknown task", mutate: func(nr *review.NewTaskReview) { nr.ProgramTaskID = "nope" }, wantNotFound: true},
		{name: "unknown reviewer", mutate: func(nr *review.NewTaskReview) { nr.ReviewerID = "nope" }, wantNotFound: true},
		{name: "missing student", mutate: func(nr *review.NewTaskReview) { nr.StudentID = " " }, wantInvalid: true},
		{name: "missing date", mutate: func(nr *review.NewTaskReview) { nr.ScheduledDate = core.FlexTime{} }, wantInvalid: true},
		{name: "missing time", mutate: func(nr *review.NewTaskReview) { nr.ScheduledTime = "" }, wantInvalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nr := f.newReview(f.week2.ID)
			tt.mutate(&nr)
			_, err := f.svc.Create(context.Background(), nr)
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, core.IsNotFound(err), "IsNotFound(%v)", err)
			if tt.wantInvalid {
				assert.NotNil(t, core.TranslateErrors(err, core.NewTranslator()))
			}
		})
	}
}

func TestService_Create_freeTextTime(t *testing.T) {
	f := setup(t)
	nr := f.newReview(f.week1.ID)
	nr.ScheduledTime = "  after lunch "
	got, err := f.svc.Create(context.Background(), nr)
	require.NoError(t, err)
	assert.Equal(t, "after lunch", got.ScheduledTime)

	later := "evening, IST"
	got, err = f.svc.Update(context.Background(), got.ID, review.UpdateTaskReview{ConfirmedTime: &later})
	require.NoError(t, err)
	assert.Equal(t, "evening, IST", got.ConfirmedTime.String)
}

func TestService_Create_notifiesStudent(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)

	sent := f.transport.SentOf(notify.ReviewScheduled)
	require.Len(t, sent, 1)
	assert.Equal(t, f.student.MobileNo, sent[0].To)
	assert.Equal(t, "Asha", sent[0].Data.StudentName)
	assert.Equal(t, "BCK-101", sent[0].Data.BatchName)
	assert.Equal(t, "Week 1", sent[0].Data.TaskName)
	assert.Equal(t, "10:30 AM", sent[0].Data.Time)

	t.Run("toggle off", func(t *testing.T) {
		f.transport.Reset()
		f.disableWhatsapp(t)
		_, err := f.svc.Create(context.Background(), f.newReview(f.week2.ID))
		require.NoError(t, err)
		assert.Empty(t, f.transport.Sent())
	})
}

func TestService_Create_transportFailureIsNotSurfaced(t *testing.T) {
	f := setup(t)
	f.transport.Fail = "WhatsApp service not configured"
	got, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestService_reviewerGuards(t *testing.T) {
	states := []struct {
		name  string
		state review.TaskReview
		want  error
	}{
		{name: "cancelled", state: review.TaskReview{IsCancelled: true}, want: review.ErrReviewCancelled},
		{name: "completed", state: review.TaskReview{IsReviewCompleted: true, ReviewStatus: nullString("good")}, want: review.ErrReviewCompleted},
		{name: "cancelled & completed", state: review.TaskReview{IsCancelled: true, IsReviewCompleted: true}, want: review.ErrReviewCancelled},
	}
	for _, st := range states {
		t.Run(st.name, func(t *testing.T) {
			f := setup(t)
			r := st.state
			r.StudentID = f.student.ID
			r.ReviewerID = f.reviewer.ID
			r.ScheduledDate = now
			r.ScheduledTime = "11:00 AM"
			r = testutil.CreateReview(t, f.reviews, r)

			_, err := f.svc.AssignReviewer(context.Background(), r.ID, review.AssignReviewer{ReviewerID: f.reviewer.ID})
			assert.Equal(t, st.want, err, "AssignReviewer()")
			_, err = f.svc.UnassignReviewer(context.Background(), r.ID)
			assert.Equal(t, st.want, err, "UnassignReviewer()")

			ur := review.UpdateTaskReview{Reviewer: review.ReviewerField{Set: true}}
			_, err = f.svc.Update(context.Background(), r.ID, ur)
			assert.True(t, core.IsConflict(err), "Update() reviewer")

			assert.Empty(t, f.transport.Sent())
		})
	}
}

func TestService_AssignReviewer(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), review.NewTaskReview{
		StudentID:     f.student.ID,
		ProgramTaskID: f.week1.ID,
		ScheduledDate: core.FlexTime{Time: now},
		ScheduledTime: "04:00 PM",
		ConfirmedTime: "04:30 PM",
	})
	require.NoError(t, err)
	f.transport.Reset()

	got, err := f.svc.AssignReviewer(context.Background(), created.ID, review.AssignReviewer{ReviewerID: f.reviewer.ID})
	require.NoError(t, err)
	assert.Equal(t, f.reviewer.ID, got.ReviewerID)
	assert.False(t, got.ConfirmedTime.Valid, "confirmed time reset on reviewer change")
	if assert.NotNil(t, got.Reviewer) {
		assert.Equal(t, "Ravi Kumar", got.Reviewer.FullName)
	}

	sent := f.transport.SentOf(notify.ReviewerAssigned)
	require.Len(t, sent, 1)
	assert.Equal(t, groupRecipient, sent[0].To)
	assert.Equal(t, "Ravi Kumar", sent[0].Data.ReviewerName)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "asha@mail.test", f.mailer.sent[0].To[0].Address)
	assert.Equal(t, "reviewer_assigned", f.mailer.sent[0].TemplateName)

	t.Run("unknown reviewer", func(t *testing.T) {
		_, err := f.svc.AssignReviewer(context.Background(), created.ID, review.AssignReviewer{ReviewerID: "nope"})
		assert.Equal(t, directory.ErrReviewerNotFound, err)
	})
	t.Run("unknown review", func(t *testing.T) {
		_, err := f.svc.AssignReviewer(context.Background(), "nope", review.AssignReviewer{ReviewerID: f.reviewer.ID})
		assert.Equal(t, review.ErrNotFound, err)
	})
	t.Run("missing reviewer id", func(t *testing.T) {
		_, err := f.svc.AssignReviewer(context.Background(), created.ID, review.AssignReviewer{})
		assert.Error(t, err)
		assert.False(t, core.IsNotFound(err))
	})
}

func TestService_UnassignReviewer(t *testing.T) {
	f := setup(t)
	r := testutil.CreateReview(t, f.reviews, review.TaskReview{
		StudentID:     f.student.ID,
		ReviewerID:    f.reviewer.ID,
		ScheduledDate: now,
		ScheduledTime: "11:00 AM",
		ConfirmedTime: nullString("11:30 AM"),
	})

	got, err := f.svc.UnassignReviewer(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ReviewerID)
	assert.Nil(t, got.Reviewer)
	assert.False(t, got.ConfirmedTime.Valid)

	sent := f.transport.SentOf(notify.ReviewerUnassigned)
	require.Len(t, sent, 1)
	assert.Equal(t, groupRecipient, sent[0].To)
}

func TestService_Cancel(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)
	f.transport.Reset()

	got, err := f.svc.Cancel(context.Background(), created.ID, review.CancelTaskReview{Reason: " student sick ", CancelledBy: "admin"})
	require.NoError(t, err)
	assert.True(t, got.IsCancelled)
	assert.Equal(t, "student sick", got.CancelReason.String)

	sent := f.transport.SentOf(notify.ReviewCancelled)
	require.Len(t, sent, 1)
	assert.Equal(t, "student sick", sent[0].Data.Reason)
	assert.Equal(t, "admin", sent[0].Data.CancelledBy)

	_, err = f.svc.Cancel(context.Background(), created.ID, review.CancelTaskReview{})
	assert.Equal(t, review.ErrReviewCancelled, err)

	_, err = f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{})
	assert.Equal(t, review.ErrReviewCancelled, err, "cancelled reviews are read-only")

	// the task is free again
	_, err = f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	assert.NoError(t, err)
}

func TestService_Complete(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)
	f.transport.Reset()

	theory, practical := 8.0, 9.5
	got, err := f.svc.Complete(context.Background(), created.ID, review.CompleteTaskReview{
		ScoreInTheory:    &theory,
		ScoreInPractical: &practical,
		ReviewStatus:     "Very_Good",
		PendingTasks:     []string{"generics"},
	})
	require.NoError(t, err)
	assert.True(t, got.IsReviewCompleted)
	assert.Equal(t, review.StatusVeryGood, got.ReviewStatus.String)
	assert.Equal(t, []string{"generics"}, got.PendingTasks)
	assert.True(t, now.Equal(got.EndDate.Time))
	assert.Equal(t, "10:00 AM", got.EndTime.String)

	sent := f.transport.SentOf(notify.ReviewCompleted)
	require.Len(t, sent, 1)
	if assert.NotNil(t, sent[0].Data.Score) {
		assert.Equal(t, 17.5, *sent[0].Data.Score)
	}

	_, err = f.svc.Complete(context.Background(), created.ID, review.CompleteTaskReview{ReviewStatus: "good"})
	assert.Equal(t, review.ErrReviewCompleted, err)

	t.Run("invalid status", func(t *testing.T) {
		other, err := f.svc.Create(context.Background(), f.newReview(f.week2.ID))
		require.NoError(t, err)
		_, err = f.svc.Complete(context.Background(), other.ID, review.CompleteTaskReview{ReviewStatus: "excellent"})
		assert.Error(t, err)
	})
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)

	t.Run("re-review flag derives payment again", func(t *testing.T) {
		yes := true
		proof := "https://proof/1.png"
		got, err := f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{
			IsReReview:      &yes,
			ReReviewDetails: &review.ReReviewInput{Proof: &proof},
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(got.ReReviewDetails.FineAmount))
		assert.True(t, decimal.NewFromInt(500).Equal(got.PaymentAmount))
		assert.Equal(t, proof, got.ReReviewDetails.Proof.String)

		no := false
		got, err = f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{IsReReview: &no})
		require.NoError(t, err)
		assert.True(t, got.ReReviewDetails.FineAmount.IsZero())
		assert.False(t, got.ReReviewDetails.Proof.Valid)
		assert.True(t, decimal.NewFromInt(500).Equal(got.PaymentAmount), "first attempt pays the task cost again")
		assert.False(t, got.ReReviewDetails.PaymentDate.Valid)
	})

	t.Run("task change", func(t *testing.T) {
		got, err := f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{ProgramTaskID: &f.week2.ID})
		require.NoError(t, err)
		assert.Equal(t, f.week2.ID, got.ProgramTaskID)
		assert.True(t, got.PaymentAmount.IsZero())
	})

	t.Run("reviewer set then cleared", func(t *testing.T) {
		confirmed := "10:45 AM"
		got, err := f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{
			Reviewer: review.ReviewerField{Set: true, ID: f.reviewer.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, f.reviewer.ID, got.ReviewerID)

		got, err = f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{ConfirmedTime: &confirmed})
		require.NoError(t, err)
		assert.Equal(t, "10:45 AM", got.DisplayTime())

		got, err = f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{Reviewer: review.ReviewerField{Set: true}})
		require.NoError(t, err)
		assert.Empty(t, got.ReviewerID)
		assert.False(t, got.ConfirmedTime.Valid)
	})

	t.Run("invalid score", func(t *testing.T) {
		score := 101.0
		_, err := f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{ScoreInTheory: &score})
		assert.Error(t, err)
	})
}

func TestService_retiredTask(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)

	retired := f.week2
	retired.IsActive = false
	_, err = f.tasks.UpdateTask(context.Background(), retired)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.newReview(f.week2.ID))
	assert.Equal(t, review.ErrTaskRetired, err)

	_, err = f.svc.Update(context.Background(), created.ID, review.UpdateTaskReview{ProgramTaskID: &f.week2.ID})
	assert.Equal(t, review.ErrTaskRetired, err)

	got, err := f.svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, f.week1.ID, got.ProgramTaskID)
}

func TestService_BulkUpdate(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)

	yes := true
	res, err := f.svc.BulkUpdate(context.Background(), []review.BulkUpdateItem{
		{ID: created.ID, Patch: review.UpdateTaskReview{IsPaymentOrderd: &yes}},
		{ID: "nope", Patch: review.UpdateTaskReview{IsPaymentOrderd: &yes}},
		{ID: ""},
	})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.True(t, res.Updated[0].IsPaymentOrderd)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "nope", res.Failed[0].ID)
	assert.Equal(t, "task review not found", res.Failed[0].Error)

	_, err = f.svc.BulkUpdate(context.Background(), nil)
	assert.Error(t, err)
}

func TestService_Remove(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(context.Background(), created.ID))

	_, err = f.svc.GetByID(context.Background(), created.ID)
	assert.Equal(t, review.ErrNotFound, err)
	assert.Equal(t, review.ErrNotFound, f.svc.Remove(context.Background(), created.ID))

	// removed reviews do not block new attempts
	_, err = f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	assert.NoError(t, err)
}

func TestService_SyncPendingTasks(t *testing.T) {
	f := setup(t)
	created, err := f.svc.Create(context.Background(), f.newReview(f.week1.ID))
	require.NoError(t, err)
	assert.Empty(t, created.PendingTasks)

	got, err := f.svc.SyncPendingTasks(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"closures", "interfaces"}, got.PendingTasks)

	other := testutil.CreateReview(t, f.reviews, review.TaskReview{
		StudentID:     f.student.ID,
		ProgramTaskID: f.week2.ID,
		ScheduledDate: now,
		ScheduledTime: "01:00 PM",
		PendingTasks:  []string{"stale"},
	})
	n, err := f.svc.SyncAllPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = f.svc.GetByID(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PendingTasks)
}

func TestService_Query(t *testing.T) {
	f := setup(t)
	second := testutil.CreateStudent(t, f.dir, "Bala", "bala@mail.test", "", f.program.ID)
	for i, s := range []directory.Student{f.student, f.student, second} {
		r := review.TaskReview{
			StudentID:     s.ID,
			ScheduledDate: now.AddDate(0, 0, i),
			ScheduledTime: "10:00 AM",
		}
		if i == 0 {
			r.ReviewerID = f.reviewer.ID
		}
		testutil.CreateReview(t, f.reviews, r)
	}

	tests := []struct {
		name      string
		filter    review.QueryFilter
		page      core.Page
		wantCount int
		wantTotal int
	}{
		{name: "all", wantCount: 3, wantTotal: 3},
		{name: "by student", filter: review.QueryFilter{StudentID: f.student.ID}, wantCount: 2, wantTotal: 2},
		{name: "by reviewer", filter: review.QueryFilter{Reviewer: f.reviewer.ID}, wantCount: 1, wantTotal: 1},
		{name: "unassigned", filter: review.QueryFilter{Reviewer: "null"}, wantCount: 2, wantTotal: 2},
		{name: "paginated", page: core.Page{Page: 2, Limit: 2}, wantCount: 1, wantTotal: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pagination, err := f.svc.Query(context.Background(), tt.filter, nil, tt.page)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantTotal, pagination.Total)
		})
	}

	t.Run("most recently scheduled first", func(t *testing.T) {
		got, _, err := f.svc.Query(context.Background(), review.QueryFilter{}, nil, core.Page{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, second.ID, got[0].StudentID)
	})

	t.Run("unknown ordering", func(t *testing.T) {
		_, _, err := f.svc.Query(context.Background(), review.QueryFilter{}, []core.DBOrdering{{Field: "password"}}, core.Page{})
		assert.Error(t, err)
	})

	t.Run("last review of student", func(t *testing.T) {
		got, err := f.svc.GetLastReviewForStudent(context.Background(), f.student.ID)
		require.NoError(t, err)
		assert.True(t, now.AddDate(0, 0, 1).Equal(got.ScheduledDate))

		_, err = f.svc.GetLastReviewForStudent(context.Background(), "nope")
		assert.Equal(t, review.ErrNotFound, err)
	})
}

func TestService_GetNextWeekForStudent(t *testing.T) {
	tests := []struct {
		name         string
		lastStatus   string // empty: no completed review
		wantWeek     int
		wantReReview bool
	}{
		{name: "no history starts at week 1", wantWeek: 1},
		{name: "failed repeats the week", lastStatus: review.StatusFailed, wantWeek: 1, wantReReview: true},
		{name: "good moves on", lastStatus: review.StatusGood, wantWeek: 2},
		{name: "need improvements moves on", lastStatus: review.StatusNeedImprovements, wantWeek: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.lastStatus != "" {
				testutil.CreateReview(t, f.reviews, review.TaskReview{
					StudentID:         f.student.ID,
					ProgramTaskID:     f.week1.ID,
					ScheduledDate:     now,
					ScheduledTime:     "10:00 AM",
					IsReviewCompleted: true,
					ReviewStatus:      nullString(tt.lastStatus),
					EndDate:           nullTime(now),
				})
			}

			got, err := f.svc.GetNextWeekForStudent(context.Background(), f.student.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWeek, got.Week)
			assert.Equal(t, tt.wantWeek, got.Task.Week)
			assert.Equal(t, tt.wantReReview, got.IsReReview)
		})
	}

	t.Run("latest completed review wins", func(t *testing.T) {
		f := setup(t)
		for i, st := range []string{review.StatusFailed, review.StatusGood} {
			testutil.CreateReview(t, f.reviews, review.TaskReview{
				StudentID:         f.student.ID,
				ProgramTaskID:     f.week1.ID,
				ScheduledDate:     now,
				ScheduledTime:     "10:00 AM",
				IsReviewCompleted: true,
				ReviewStatus:      nullString(st),
				EndDate:           nullTime(now.AddDate(0, 0, i)),
			})
		}
		got, err := f.svc.GetNextWeekForStudent(context.Background(), f.student.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Week)
	})

	t.Run("end of curriculum", func(t *testing.T) {
		f := setup(t)
		testutil.CreateReview(t, f.reviews, review.TaskReview{
			StudentID:         f.student.ID,
			ProgramTaskID:     f.week2.ID,
			ScheduledDate:     now,
			ScheduledTime:     "10:00 AM",
			IsReviewCompleted: true,
			ReviewStatus:      nullString(review.StatusGood),
			EndDate:           nullTime(now),
		})
		_, err := f.svc.GetNextWeekForStudent(context.Background(), f.student.ID)
		assert.Equal(t, program.ErrNotFound, err)
	})

	t.Run("unknown student", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.GetNextWeekForStudent(context.Background(), "nope")
		assert.Equal(t, directory.ErrStudentNotFound, err)
	})
}

func TestService_GetAdminStats(t *testing.T) {
	f := setup(t)
	base := review.TaskReview{StudentID: f.student.ID, ScheduledDate: now, ScheduledTime: "10:00 AM"}

	completedUnpaid := base
	completedUnpaid.IsReviewCompleted = true
	completedUnpaid.ReviewerID = f.reviewer.ID
	completedUnpaid.PaymentAmount = decimal.NewFromInt(500)
	testutil.CreateReview(t, f.reviews, completedUnpaid)

	completedPaid := completedUnpaid
	completedPaid.IsPaymentCompleted = true
	testutil.CreateReview(t, f.reviews, completedPaid)

	testutil.CreateReview(t, f.reviews, base) // unassigned

	cancelled := base
	cancelled.IsCancelled = true
	testutil.CreateReview(t, f.reviews, cancelled)

	old := completedUnpaid
	old.ScheduledDate = now.AddDate(0, -2, 0)
	testutil.CreateReview(t, f.reviews, old)

	from := now.AddDate(0, 0, -7)
	stats, err := f.svc.GetAdminStats(context.Background(), review.AdminStatsFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCompletedReviews)
	assert.Equal(t, 1, stats.TotalUnassignedReviews)
	assert.Equal(t, 1, stats.PendingPayment.Count)
	assert.True(t, decimal.NewFromInt(500).Equal(stats.PendingPayment.Amount))

	stats, err = f.svc.GetAdminStats(context.Background(), review.AdminStatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCompletedReviews)

	to := from.AddDate(0, 0, -1)
	_, err = f.svc.GetAdminStats(context.Background(), review.AdminStatsFilter{From: &from, To: &to})
	assert.Error(t, err)
}

func TestPeriodWindow(t *testing.T) {
	tests := []struct {
		period   string
		wantFrom time.Time
		wantDays int
	}{
		{period: review.PeriodToday, wantFrom: time.Date(2025, 1, 20, 0, 0, 0, 0, core.IST), wantDays: 1},
		{period: review.PeriodWeek, wantFrom: time.Date(2025, 1, 20, 0, 0, 0, 0, core.IST), wantDays: 7},
		{period: review.PeriodMonth, wantFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, core.IST), wantDays: 31},
		{period: review.PeriodYear, wantFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, core.IST), wantDays: 365},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			from, to, err := review.PeriodWindow(now, tt.period)
			require.NoError(t, err)
			assert.True(t, tt.wantFrom.Equal(from), "from = %v, want %v", from, tt.wantFrom)
			assert.True(t, from.AddDate(0, 0, tt.wantDays).Add(-time.Nanosecond).Equal(to), "to = %v", to)
		})
	}

	t.Run("week starts on monday", func(t *testing.T) {
		sunday := time.Date(2025, 1, 26, 23, 0, 0, 0, core.IST)
		from, _, err := review.PeriodWindow(sunday, review.PeriodWeek)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, from.Weekday())
		assert.Equal(t, 20, from.Day())
	})

	_, _, err := review.PeriodWindow(now, "decade")
	assert.Error(t, err)
}

func TestService_GetReviewerEarnings(t *testing.T) {
	f := setup(t)
	paid := func(amount int64, end time.Time) review.TaskReview {
		return review.TaskReview{
			StudentID:          f.student.ID,
			ReviewerID:         f.reviewer.ID,
			ScheduledDate:      end,
			ScheduledTime:      "10:00 AM",
			IsReviewCompleted:  true,
			IsPaymentCompleted: true,
			PaymentAmount:      decimal.NewFromInt(amount),
			EndDate:            nullTime(end),
		}
	}
	testutil.CreateReview(t, f.reviews, paid(500, time.Date(2025, 1, 3, 11, 0, 0, 0, core.IST)))
	testutil.CreateReview(t, f.reviews, paid(250, time.Date(2025, 1, 3, 18, 0, 0, 0, core.IST)))
	// 00:15 IST on the 10th is still the 9th in UTC
	testutil.CreateReview(t, f.reviews, paid(120, time.Date(2025, 1, 10, 0, 15, 0, 0, core.IST)))
	unpaid := paid(999, time.Date(2025, 1, 4, 11, 0, 0, 0, core.IST))
	unpaid.IsPaymentCompleted = false
	testutil.CreateReview(t, f.reviews, unpaid)
	testutil.CreateReview(t, f.reviews, paid(999, time.Date(2024, 12, 31, 11, 0, 0, 0, core.IST)))

	got, err := f.svc.GetReviewerEarnings(context.Background(), f.reviewer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, review.PeriodMonth, got.Period)
	assert.Len(t, got.Daily, 31, "dense daily series")
	assert.Equal(t, 3, got.TotalReviews)
	assert.True(t, decimal.NewFromInt(870).Equal(got.TotalEarnings), "total = %v", got.TotalEarnings)

	assert.Equal(t, "2025-01-03", got.Daily[2].Date)
	assert.True(t, decimal.NewFromInt(750).Equal(got.Daily[2].Amount))
	assert.Equal(t, 2, got.Daily[2].Count)
	assert.Equal(t, "2025-01-10", got.Daily[9].Date)
	assert.Equal(t, 1, got.Daily[9].Count)
	assert.True(t, got.Daily[0].Amount.IsZero())

	week, err := f.svc.GetReviewerEarnings(context.Background(), f.reviewer.ID, "week")
	require.NoError(t, err)
	assert.Len(t, week.Daily, 7)
	assert.True(t, week.TotalEarnings.IsZero())

	_, err = f.svc.GetReviewerEarnings(context.Background(), "nope", "month")
	assert.Equal(t, directory.ErrReviewerNotFound, err)
}
