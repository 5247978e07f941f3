package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mentorbro/core/directory"
)

type (
	studentRow struct {
		ID        string      `db:"id"`
		Name      string      `db:"name"`
		Type      string      `db:"type"`
		Email     string      `db:"email"`
		MobileNo  string      `db:"mobile_no"`
		BatchID   null.String `db:"batch_id"`
		ProgramID null.String `db:"program_id"`
		IsActive  bool        `db:"is_active"`
		CreatedAt time.Time   `db:"created_at"`
	}

	reviewerRow struct {
		ID               string         `db:"id"`
		FullName         string         `db:"full_name"`
		Username         string         `db:"username"`
		Email            string         `db:"email"`
		MobileNo         string         `db:"mobile_no"`
		TeachingPrograms pq.StringArray `db:"teaching_programs"`
		IsActive         bool           `db:"is_active"`
		CreatedAt        time.Time      `db:"created_at"`
	}

	programRow struct {
		ID         string    `db:"id"`
		Name       string    `db:"name"`
		TotalWeeks int       `db:"total_weeks"`
		IsActive   bool      `db:"is_active"`
		CreatedAt  time.Time `db:"created_at"`
	}

	batchRow struct {
		ID        string      `db:"id"`
		Name      string      `db:"name"`
		ProgramID null.String `db:"program_id"`
		IsActive  bool        `db:"is_active"`
		CreatedAt time.Time   `db:"created_at"`
	}
)

type directoryRepository struct {
	db *sqlx.DB
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(db *sqlx.DB) *directoryRepository {
	return &directoryRepository{db: db}
}

func (repo directoryRepository) get(ctx context.Context, dest interface{}, table, id string, notFound error) error {
	if !validID(id) {
		return notFound
	}
	if err := repo.db.GetContext(ctx, dest, "SELECT * FROM "+table+" WHERE id = $1", id); err != nil {
		return trapNoRowsErr(err, notFound, "getting "+table)
	}
	return nil
}

func (repo directoryRepository) insert(ctx context.Context, table string, columns []string, row interface{}) error {
	q := "INSERT INTO " + table + " (" + columnList(columns) + ") VALUES (" + namedList(columns) + ")"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return errors.Wrap(err, "inserting "+table)
	}
	return nil
}

func (repo directoryRepository) GetStudent(ctx context.Context, id string) (directory.Student, error) {
	var row studentRow
	if err := repo.get(ctx, &row, "student", id, directory.ErrStudentNotFound); err != nil {
		return directory.Student{}, err
	}
	return directory.Student{
		ID:        row.ID,
		Name:      row.Name,
		Type:      row.Type,
		Email:     row.Email,
		MobileNo:  row.MobileNo,
		BatchID:   row.BatchID.String,
		ProgramID: row.ProgramID.String,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (repo directoryRepository) GetReviewer(ctx context.Context, id string) (directory.Reviewer, error) {
	var row reviewerRow
	if err := repo.get(ctx, &row, "reviewer", id, directory.ErrReviewerNotFound); err != nil {
		return directory.Reviewer{}, err
	}
	return directory.Reviewer{
		ID:               row.ID,
		FullName:         row.FullName,
		Username:         row.Username,
		Email:            row.Email,
		MobileNo:         row.MobileNo,
		TeachingPrograms: emptyIfNil(row.TeachingPrograms),
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt,
	}, nil
}

func (repo directoryRepository) GetProgram(ctx context.Context, id string) (directory.Program, error) {
	var row programRow
	if err := repo.get(ctx, &row, "program", id, directory.ErrProgramNotFound); err != nil {
		return directory.Program{}, err
	}
	return directory.Program(row), nil
}

func (repo directoryRepository) GetBatch(ctx context.Context, id string) (directory.Batch, error) {
	var row batchRow
	if err := repo.get(ctx, &row, "batch", id, directory.ErrBatchNotFound); err != nil {
		return directory.Batch{}, err
	}
	return directory.Batch{
		ID:        row.ID,
		Name:      row.Name,
		ProgramID: row.ProgramID.String,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (repo directoryRepository) CreateStudent(ctx context.Context, s directory.Student) (directory.Student, error) {
	s.ID = uuid.New().String()
	row := studentRow{
		ID:        s.ID,
		Name:      s.Name,
		Type:      s.Type,
		Email:     s.Email,
		MobileNo:  s.MobileNo,
		BatchID:   nullID(s.BatchID),
		ProgramID: nullID(s.ProgramID),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC(),
	}
	cols := []string{"id", "name", "type", "email", "mobile_no", "batch_id", "program_id", "is_active", "created_at"}
	if err := repo.insert(ctx, "student", cols, row); err != nil {
		return directory.Student{}, err
	}
	return s, nil
}

func (repo directoryRepository) CreateReviewer(ctx context.Context, r directory.Reviewer) (directory.Reviewer, error) {
	r.ID = uuid.New().String()
	r.TeachingPrograms = emptyIfNil(r.TeachingPrograms)
	row := reviewerRow{
		ID:               r.ID,
		FullName:         r.FullName,
		Username:         r.Username,
		Email:            r.Email,
		MobileNo:         r.MobileNo,
		TeachingPrograms: r.TeachingPrograms,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt.UTC(),
	}
	cols := []string{"id", "full_name", "username", "email", "mobile_no", "teaching_programs", "is_active", "created_at"}
	if err := repo.insert(ctx, "reviewer", cols, row); err != nil {
		return directory.Reviewer{}, err
	}
	return r, nil
}

func (repo directoryRepository) CreateProgram(ctx context.Context, p directory.Program) (directory.Program, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = p.CreatedAt.UTC()
	cols := []string{"id", "name", "total_weeks", "is_active", "created_at"}
	if err := repo.insert(ctx, "program", cols, programRow(p)); err != nil {
		return directory.Program{}, err
	}
	return p, nil
}

func (repo directoryRepository) CreateBatch(ctx context.Context, b directory.Batch) (directory.Batch, error) {
	b.ID = uuid.New().String()
	row := batchRow{
		ID:        b.ID,
		Name:      b.Name,
		ProgramID: nullID(b.ProgramID),
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt.UTC(),
	}
	cols := []string{"id", "name", "program_id", "is_active", "created_at"}
	if err := repo.insert(ctx, "batch", cols, row); err != nil {
		return directory.Batch{}, err
	}
	return b, nil
}
