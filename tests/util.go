package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/mentorbro/core"
	"github.com/trezcool/mentorbro/core/directory"
	"github.com/trezcool/mentorbro/core/program"
	"github.com/trezcool/mentorbro/core/review"
)

func CreateProgram(t *testing.T, repo directory.Repository, name string, totalWeeks int) directory.Program {
	p, err := repo.CreateProgram(context.Background(), directory.Program{
		Name:       name,
		TotalWeeks: totalWeeks,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createProgram() failed: %v", err)
	}
	return p
}

func CreateBatch(t *testing.T, repo directory.Repository, name, programID string) directory.Batch {
	b, err := repo.CreateBatch(context.Background(), directory.Batch{
		Name:      name,
		ProgramID: programID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createBatch() failed: %v", err)
	}
	return b
}

func CreateStudent(t *testing.T, repo directory.Repository, name, email, mobileNo, programID string, batchID ...string) directory.Student {
	s := directory.Student{
		Name:      name,
		Type:      directory.StudentTypeExternal,
		Email:     email,
		MobileNo:  mobileNo,
		ProgramID: programID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if len(batchID) > 0 {
		s.Type = directory.StudentTypeBatch
		s.BatchID = batchID[0]
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

func CreateReviewer(t *testing.T, repo directory.Repository, fullName, username string) directory.Reviewer {
	r, err := repo.CreateReviewer(context.Background(), directory.Reviewer{
		FullName:  fullName,
		Username:  username,
		Email:     username + "@mentorbro.test",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createReviewer() failed: %v", err)
	}
	return r
}

func CreateProgramTask(t *testing.T, repo program.Repository, programID string, week int, cost, fine int64, tasks ...string) program.Task {
	now := time.Now().UTC()
	if tasks == nil {
		tasks = []string{}
	}
	task, err := repo.CreateTask(context.Background(), program.Task{
		Name:               fmt.Sprintf("Week %d", week),
		Week:               week,
		ProgramID:          programID,
		Tasks:              tasks,
		Cost:               decimal.NewFromInt(cost),
		ReReviewFineAmount: decimal.NewFromInt(fine),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		t.Fatalf("createProgramTask() failed: %v", err)
	}
	return task
}

// CreateReview stores a review as is, bypassing the lifecycle rules. Use it to set up any state.
func CreateReview(t *testing.T, repo review.Repository, r review.TaskReview) review.TaskReview {
	now := time.Now().UTC()
	r.IsActive = true
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.PendingTasks == nil {
		r.PendingTasks = []string{}
	}
	r, err := repo.CreateReview(context.Background(), r)
	if err != nil {
		t.Fatalf("createReview() failed: %v", err)
	}
	return r
}

// Logger records entries through t.Logf and counts them per level.
type Logger struct {
	t      *testing.T
	mu     sync.Mutex
	counts map[string]int
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger {
	return &Logger{t: t, counts: make(map[string]int)}
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.mu.Lock()
	l.counts[level]++
	l.mu.Unlock()
	l.t.Logf("[%s] %s %v", level, msg, args)
}

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[level]
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args...) }
