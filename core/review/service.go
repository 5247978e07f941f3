package review

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/notify"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/sysconfig"
)

var (
	ErrNotFound           = core.NewNotFoundError("task review")
	ErrReReviewNotAllowed = core.NewConflictError("a review already exists for this task: re-review only allowed after failed")
	ErrReviewCancelled    = core.NewConflictError("task review is cancelled")
	ErrReviewCompleted    = core.NewConflictError("task review is already completed")
	ErrTaskRetired        = core.NewConflictError("program task is retired")
)

const reviewerAssignedTemplate = "reviewer_assigned"

type (
	// Deps are the collaborators of the review Service.
	Deps struct {
		Repo      Repository
		Tasks     program.Repository
		Directory directory.Reader
		Settings  sysconfig.Provider
		Transport notify.Transport
		Mailer    core.EmailService
		Logger    core.Logger
		Validate  *validator.Validate
		// GroupRecipient is the management group staff notifications are sent to.
		GroupRecipient string
		// Now defaults to time.Now.
		Now func() time.Time
	}

	Service struct {
		repo      Repository
		tasks     program.Repository
		directory directory.Reader
		settings  sysconfig.Provider
		transport notify.Transport
		mailer    core.EmailService
		logger    core.Logger
		validate  *validator.Validate
		group     string
		now       func() time.Time
		sync      bool // run side effects synchronously
	}
)

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      deps.Repo,
		tasks:     deps.Tasks,
		directory: deps.Directory,
		settings:  deps.Settings,
		transport: deps.Transport,
		mailer:    deps.Mailer,
		logger:    deps.Logger,
		validate:  deps.Validate,
		group:     deps.GroupRecipient,
		now:       now,
	}
}

// view is a review with everything it references loaded. Missing references stay nil.
type view struct {
	review   TaskReview
	student  *directory.Student
	batch    *directory.Batch
	program  *directory.Program
	task     *program.Task
	reviewer *directory.Reviewer
}

func ignoreNotFound(err error) error {
	if core.IsNotFound(err) {
		return nil
	}
	return err
}

func (svc *Service) load(ctx context.Context, r TaskReview) (view, error) {
	v := view{review: r}

	if r.StudentID != "" {
		s, err := svc.directory.GetStudent(ctx, r.StudentID)
		if err = ignoreNotFound(err); err != nil {
			return view{}, errors.Wrap(err, "getting student")
		} else if s.ID != "" {
			v.student = &s
			if s.BatchID != "" {
				b, err := svc.directory.GetBatch(ctx, s.BatchID)
				if err = ignoreNotFound(err); err != nil {
					return view{}, errors.Wrap(err, "getting batch")
				} else if b.ID != "" {
					v.batch = &b
				}
			}
		}
	}
	if r.ProgramID != "" {
		p, err := svc.directory.GetProgram(ctx, r.ProgramID)
		if err = ignoreNotFound(err); err != nil {
			return view{}, errors.Wrap(err, "getting program")
		} else if p.ID != "" {
			v.program = &p
		}
	}
	if r.ProgramTaskID != "" {
		t, err := svc.tasks.GetTask(ctx, r.ProgramTaskID)
		if err = ignoreNotFound(err); err != nil {
			return view{}, errors.Wrap(err, "getting program task")
		} else if t.ID != "" {
			v.task = &t
		}
	}
	if r.IsAssigned() {
		rv, err := svc.directory.GetReviewer(ctx, r.ReviewerID)
		if err = ignoreNotFound(err); err != nil {
			return view{}, errors.Wrap(err, "getting reviewer")
		} else if rv.ID != "" {
			v.reviewer = &rv
		}
	}
	return v, nil
}

func (v view) details() TaskReviewDetails {
	d := TaskReviewDetails{TaskReview: v.review}
	if v.student != nil {
		d.Student = newStudentRef(*v.student)
	}
	if v.program != nil {
		d.Program = newProgramRef(*v.program)
	}
	if v.task != nil {
		ref := v.task.Ref()
		d.ProgramTask = &ref
	}
	if v.reviewer != nil {
		d.Reviewer = newReviewerRef(*v.reviewer)
	}
	return d
}

func (v view) notificationData() notify.Data {
	r := v.review
	data := notify.Data{
		TaskName:   "Task Review",
		Date:       r.ScheduledDate,
		Time:       r.DisplayTime(),
		SecondTime: r.SecondScheduledTime.String,
	}
	if v.student != nil {
		data.StudentName = v.student.Name
		data.StudentEmail = v.student.Email
	}
	if v.batch != nil {
		data.BatchName = v.batch.Name
	}
	if v.task != nil && v.task.Name != "" {
		data.TaskName = v.task.Name
	}
	if v.reviewer != nil {
		data.ReviewerName = v.reviewer.DisplayName()
		data.ReviewerUsername = v.reviewer.Username
		data.ReviewerEmail = v.reviewer.Email
	}
	return data
}

func (svc *Service) populate(ctx context.Context, r TaskReview) (TaskReviewDetails, error) {
	v, err := svc.load(ctx, r)
	if err != nil {
		return TaskReviewDetails{}, err
	}
	return v.details(), nil
}

func (svc *Service) populateAll(ctx context.Context, reviews []TaskReview) ([]TaskReviewDetails, error) {
	all := make([]TaskReviewDetails, 0, len(reviews))
	for _, r := range reviews {
		d, err := svc.populate(ctx, r)
		if err != nil {
			return nil, err
		}
		all = append(all, d)
	}
	return all, nil
}

// Side effects

func (svc *Service) dispatch(fn func(ctx context.Context)) {
	if svc.sync {
		fn(context.Background())
		return
	}
	// the request context is done once the response is sent
	go fn(context.Background())
}

func (svc *Service) currentSettings(ctx context.Context) (sysconfig.SystemConfig, bool) {
	conf, err := svc.settings.Current(ctx)
	if err != nil {
		svc.logger.Error("loading system config for notifications", errors.Wrap(err, "loading system config"))
		return sysconfig.SystemConfig{}, false
	}
	return conf, true
}

func (svc *Service) send(ctx context.Context, to string, tmpl notify.TemplateType, reviewID string, data notify.Data) {
	res := svc.transport.SendNotification(ctx, to, tmpl, data)
	if !res.Success {
		svc.logger.Warn(
			fmt.Sprintf("sending %s notification failed: %s", tmpl, res.Error),
			map[string]interface{}{"review": reviewID, "to": to},
		)
	}
}

// notifyStudent sends a WhatsApp notification to the student, if enabled and the student has a phone number.
func (svc *Service) notifyStudent(tmpl notify.TemplateType, v view, data notify.Data) {
	if v.student == nil || v.student.MobileNo == "" {
		return
	}
	svc.dispatch(func(ctx context.Context) {
		if conf, ok := svc.currentSettings(ctx); ok && conf.ReceiveMessageOnWhatsappInReviewSchedule {
			svc.send(ctx, v.student.MobileNo, tmpl, v.review.ID, data)
		}
	})
}

// notifyStaff sends a WhatsApp notification to the management group, if enabled.
func (svc *Service) notifyStaff(tmpl notify.TemplateType, v view, data notify.Data) {
	if svc.group == "" {
		return
	}
	svc.dispatch(func(ctx context.Context) {
		if conf, ok := svc.currentSettings(ctx); ok && conf.ReceiveMessageOnWhatsappInReviewSchedule {
			svc.send(ctx, svc.group, tmpl, v.review.ID, data)
		}
	})
}

type reviewerAssignedEmailData struct {
	StudentName  string
	ReviewerName string
	TaskName     string
	Date         string
	Time         string
}

// emailReviewerAssigned tells the student who reviews them, if enabled and the student has an email.
func (svc *Service) emailReviewerAssigned(v view) {
	if v.student == nil || v.student.Email == "" || svc.mailer == nil {
		return
	}
	svc.dispatch(func(ctx context.Context) {
		conf, ok := svc.currentSettings(ctx)
		if !ok || !conf.SendMailOnReviewerAssignToStudent {
			return
		}
		data := v.notificationData()
		svc.mailer.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: v.student.Name, Address: v.student.Email}},
			Subject:      "Reviewer assigned for your review",
			TemplateName: reviewerAssignedTemplate,
			TemplateData: reviewerAssignedEmailData{
				StudentName:  core.FirstNonEmpty(data.StudentName, "Student"),
				ReviewerName: core.FirstNonEmpty(data.ReviewerName, "your mentor"),
				TaskName:     data.TaskName,
				Date:         data.Date.In(core.IST).Format("02/01/2006"),
				Time:         data.Time,
			},
		})
	})
}
