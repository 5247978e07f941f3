// Package directory holds the read models of the people and curricula a review refers to.
// Their CRUD lives elsewhere; reviews only hold references to them by ID.
package directory

import (
	"context"
	"time"

	"github.com/trezcool/mentorbro/core"
)

// Student types
const (
	StudentTypeBatch    = "batch_student"
	StudentTypeExternal = "external_student"
)

var (
	ErrStudentNotFound  = core.NewNotFoundError("student")
	ErrReviewerNotFound = core.NewNotFoundError("reviewer")
	ErrProgramNotFound  = core.NewNotFoundError("program")
	ErrBatchNotFound    = core.NewNotFoundError("batch")
)

type (
	Student struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Type      string    `json:"type"`
		Email     string    `json:"email"`
		MobileNo  string    `json:"mobileNo"`
		BatchID   string    `json:"batch,omitempty"`
		ProgramID string    `json:"program,omitempty"`
		IsActive  bool      `json:"isActive"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Reviewer struct {
		ID               string    `json:"id"`
		FullName         string    `json:"fullName"`
		Username         string    `json:"username"`
		Email            string    `json:"email"`
		MobileNo         string    `json:"mobileNo"`
		TeachingPrograms []string  `json:"teachingPrograms"`
		IsActive         bool      `json:"isActive"`
		CreatedAt        time.Time `json:"createdAt"`
	}

	Program struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		TotalWeeks int       `json:"totalWeeks"`
		IsActive   bool      `json:"isActive"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	Batch struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		ProgramID string    `json:"program,omitempty"`
		IsActive  bool      `json:"isActive"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Reader is what the review workflow needs from the directory.
	Reader interface {
		GetStudent(ctx context.Context, id string) (Student, error)
		GetReviewer(ctx context.Context, id string) (Reviewer, error)
		GetProgram(ctx context.Context, id string) (Program, error)
		GetBatch(ctx context.Context, id string) (Batch, error)
	}

	Repository interface {
		Reader

		CreateStudent(ctx context.Context, s Student) (Student, error)
		CreateReviewer(ctx context.Context, r Reviewer) (Reviewer, error)
		CreateProgram(ctx context.Context, p Program) (Program, error)
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
	}
)

// DisplayName is the reviewer's full name, falling back to the username.
func (r Reviewer) DisplayName() string {
	return core.FirstNonEmpty(r.FullName, r.Username)
}
