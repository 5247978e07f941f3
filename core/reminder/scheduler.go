// Package reminder notifies staff about upcoming reviews without any external trigger.
//
// Every tick, reviews starting in 29 to 30 minutes get a REVIEW_REMINDER, once per review.
// At 05:00 IST, every review scheduled for the day gets one too.
package reminder

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
	"github.com/trezcool/mentorbro/core/sysconfig"
)

const (
	dailyHour   = 5
	dailyMinute = 0

	windowMinMinutes = 29
	windowMaxMinutes = 30
)

// TickInterval is the scheduler period. Both passes assume exactly one tick per wall-clock minute.
const TickInterval = time.Minute

// Ticker abstracts time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

// NewTicker returns a Ticker firing every TickInterval.
func NewTicker() Ticker {
	return &timeTicker{t: time.NewTicker(TickInterval)}
}

func (tt *timeTicker) C() <-chan time.Time { return tt.t.C }
func (tt *timeTicker) Stop()               { tt.t.Stop() }

type (
	Deps struct {
		Reviews   review.Repository
		Tasks     program.Repository
		Directory directory.Reader
		Settings  sysconfig.Provider
		Transport notify.Transport
		Logger    core.Logger
		// GroupRecipient is the management group reminders are sent to.
		GroupRecipient string
	}

	Scheduler struct {
		reviews   review.Repository
		tasks     program.Repository
		directory directory.Reader
		settings  sysconfig.Provider
		transport notify.Transport
		logger    core.Logger
		group     string
	}
)

func NewScheduler(deps Deps) *Scheduler {
	return &Scheduler{
		reviews:   deps.Reviews,
		tasks:     deps.Tasks,
		directory: deps.Directory,
		settings:  deps.Settings,
		transport: deps.Transport,
		logger:    deps.Logger,
		group:     deps.GroupRecipient,
	}
}

// Run evaluates both passes on every tick until ctx is done. It stops the ticker on return.
func (s *Scheduler) Run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	s.logger.Info("reminder scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case t := <-ticker.C():
			s.Tick(ctx, t)
		}
	}
}

// Tick runs the daily pass if now is 05:00 IST, then the 30-minute pass.
// Failures are logged: a tick never stops the scheduler.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Sprintf("reminder tick panicked: %v", r))
		}
	}()

	if IsDailyMinute(now) {
		if n, err := s.RunDailyPass(ctx, now); err != nil {
			s.logger.Error("daily review reminders failed", err)
		} else {
			s.logger.Info(fmt.Sprintf("daily review reminders: %d sent", n))
		}
	}
	if n, err := s.RunReminderPass(ctx, now); err != nil {
		s.logger.Error("30-min review reminders failed", err)
	} else if n > 0 {
		s.logger.Info(fmt.Sprintf("30-min review reminders: %d sent", n))
	}
}

// IsDailyMinute reports whether now falls in the 05:00 IST minute.
func IsDailyMinute(now time.Time) bool {
	ist := now.In(core.IST)
	return ist.Hour() == dailyHour && ist.Minute() == dailyMinute
}

func (s *Scheduler) enabled(ctx context.Context) (bool, error) {
	conf, err := s.settings.Current(ctx)
	if err != nil {
		return false, errors.Wrap(err, "loading system config")
	}
	return conf.ReceiveMessageOnWhatsappInReviewSchedule, nil
}

// RunDailyPass sends a reminder for every pending review scheduled today, and returns how many were sent.
func (s *Scheduler) RunDailyPass(ctx context.Context, now time.Time) (int, error) {
	if ok, err := s.enabled(ctx); err != nil || !ok {
		return 0, err
	}

	reviews, err := s.reviews.FindScheduled(ctx, review.ScheduleFilter{
		From: core.StartOfDay(now),
		To:   core.EndOfDay(now),
	})
	if err != nil {
		return 0, errors.Wrap(err, "finding today's reviews")
	}

	var sent int
	for _, r := range reviews {
		data, err := s.notificationData(ctx, r, "Unassigned")
		if err != nil {
			return sent, err
		}
		if s.send(ctx, r, data) {
			sent++
		}
	}
	return sent, nil
}

// RunReminderPass sends a reminder for every pending review of today starting in 29 to 30 minutes,
// unless it already got one. Returns how many were sent.
func (s *Scheduler) RunReminderPass(ctx context.Context, now time.Time) (int, error) {
	if ok, err := s.enabled(ctx); err != nil || !ok {
		return 0, err
	}

	reviews, err := s.reviews.FindScheduled(ctx, review.ScheduleFilter{
		From:           core.StartOfDay(now),
		To:             core.EndOfDay(now),
		OnlyUnreminded: true,
	})
	if err != nil {
		return 0, errors.Wrap(err, "finding today's reviews")
	}

	var sent int
	for _, r := range reviews {
		if !IsDue(now, r.ScheduledTime) {
			continue
		}
		// claim the reminder first: concurrent passes cannot both send it
		claimed, err := s.reviews.MarkReminderSent(ctx, r.ID)
		if err != nil {
			return sent, errors.Wrap(err, "marking reminder sent")
		}
		if !claimed {
			continue
		}

		data, err := s.notificationData(ctx, r, "Mentor")
		if err != nil {
			return sent, err
		}
		if s.send(ctx, r, data) {
			sent++
		}
	}
	return sent, nil
}

// IsDue reports whether a review starting at scheduledTime (today, IST) is 29 to 30 minutes away.
// Unparseable times are never due.
func IsDue(now time.Time, scheduledTime string) bool {
	scheduled, ok := core.AtTimeOfDay(now, scheduledTime)
	if !ok {
		return false
	}
	diff := int(math.Round(scheduled.Sub(now).Minutes()))
	return diff >= windowMinMinutes && diff <= windowMaxMinutes
}

func (s *Scheduler) send(ctx context.Context, r review.TaskReview, data notify.Data) bool {
	res := s.transport.SendNotification(ctx, s.group, notify.ReviewReminder, data)
	if !res.Success {
		s.logger.Warn(
			"sending review reminder failed: "+res.Error,
			map[string]interface{}{"review": r.ID, "to": s.group},
		)
		return false
	}
	return true
}

func (s *Scheduler) notificationData(ctx context.Context, r review.TaskReview, noReviewer string) (notify.Data, error) {
	data := notify.Data{
		StudentName:  "Student",
		TaskName:     "Task Review",
		ReviewerName: noReviewer,
		Date:         r.ScheduledDate,
		Time:         r.DisplayTime(),
	}

	if r.StudentID != "" {
		st, err := s.directory.GetStudent(ctx, r.StudentID)
		switch {
		case err == nil:
			data.StudentName = core.FirstNonEmpty(st.Name, data.StudentName)
			data.StudentEmail = st.Email
		case !core.IsNotFound(err):
			return notify.Data{}, errors.Wrap(err, "getting student")
		}
	}
	if r.ProgramTaskID != "" {
		t, err := s.tasks.GetTask(ctx, r.ProgramTaskID)
		switch {
		case err == nil:
			data.TaskName = core.FirstNonEmpty(t.Name, data.TaskName)
		case !core.IsNotFound(err):
			return notify.Data{}, errors.Wrap(err, "getting program task")
		}
	}
	if r.IsAssigned() {
		rv, err := s.directory.GetReviewer(ctx, r.ReviewerID)
		switch {
		case err == nil:
			data.ReviewerName = core.FirstNonEmpty(rv.FullName, rv.Username, rv.Email, noReviewer)
			data.ReviewerUsername = rv.Username
			data.ReviewerEmail = rv.Email
		case !core.IsNotFound(err):
			return notify.Data{}, errors.Wrap(err, "getting reviewer")
		}
	}
	return data, nil
}
