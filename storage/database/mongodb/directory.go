package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/mentorbro/core/directory"
)

type (
	studentDoc struct {
		ID        primitive.ObjectID  `bson:"_id"`
		Name      string              `bson:"name"`
		Type      string              `bson:"type"`
		Email     string              `bson:"email,omitempty"`
		MobileNo  string              `bson:"mobileNo,omitempty"`
		Batch     *primitive.ObjectID `bson:"batch,omitempty"`
		Program   *primitive.ObjectID `bson:"program,omitempty"`
		IsActive  bool                `bson:"isActive"`
		CreatedAt time.Time           `bson:"createdAt"`
	}

	reviewerDoc struct {
		ID               primitive.ObjectID   `bson:"_id"`
		FullName         string               `bson:"fullName,omitempty"`
		Username         string               `bson:"username"`
		Email            string               `bson:"email,omitempty"`
		MobileNo         string               `bson:"mobileNo,omitempty"`
		TeachingPrograms []primitive.ObjectID `bson:"teachingPrograms"`
		IsActive         bool                 `bson:"isActive"`
		CreatedAt        time.Time            `bson:"createdAt"`
	}

	programDoc struct {
		ID         primitive.ObjectID `bson:"_id"`
		Name       string             `bson:"name"`
		TotalWeeks int                `bson:"totalWeeks"`
		IsActive   bool               `bson:"isActive"`
		CreatedAt  time.Time          `bson:"createdAt"`
	}

	batchDoc struct {
		ID        primitive.ObjectID  `bson:"_id"`
		Name      string              `bson:"name"`
		Program   *primitive.ObjectID `bson:"program,omitempty"`
		IsActive  bool                `bson:"isActive"`
		CreatedAt time.Time           `bson:"createdAt"`
	}
)

type directoryRepository struct {
	db *mongo.Database
}

var _ directory.Repository = (*directoryRepository)(nil)

func NewDirectoryRepository(db *mongo.Database) *directoryRepository {
	return &directoryRepository{db: db}
}

func (repo directoryRepository) get(ctx context.Context, dest interface{}, coll, id string, notFound error) error {
	oid, ok := objectID(id)
	if !ok {
		return notFound
	}
	if err := repo.db.Collection(coll).FindOne(ctx, bson.M{"_id": oid}).Decode(dest); err != nil {
		return trapNoDocsErr(err, notFound, "getting "+coll)
	}
	return nil
}

func (repo directoryRepository) insert(ctx context.Context, coll string, doc interface{}) error {
	if _, err := repo.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "inserting into "+coll)
	}
	return nil
}

func (repo directoryRepository) GetStudent(ctx context.Context, id string) (directory.Student, error) {
	var doc studentDoc
	if err := repo.get(ctx, &doc, studentCollection, id, directory.ErrStudentNotFound); err != nil {
		return directory.Student{}, err
	}
	return directory.Student{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Type:      doc.Type,
		Email:     doc.Email,
		MobileNo:  doc.MobileNo,
		BatchID:   hexID(doc.Batch),
		ProgramID: hexID(doc.Program),
		IsActive:  doc.IsActive,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (repo directoryRepository) GetReviewer(ctx context.Context, id string) (directory.Reviewer, error) {
	var doc reviewerDoc
	if err := repo.get(ctx, &doc, reviewerCollection, id, directory.ErrReviewerNotFound); err != nil {
		return directory.Reviewer{}, err
	}
	return directory.Reviewer{
		ID:               doc.ID.Hex(),
		FullName:         doc.FullName,
		Username:         doc.Username,
		Email:            doc.Email,
		MobileNo:         doc.MobileNo,
		TeachingPrograms: hexIDs(doc.TeachingPrograms),
		IsActive:         doc.IsActive,
		CreatedAt:        doc.CreatedAt,
	}, nil
}

func (repo directoryRepository) GetProgram(ctx context.Context, id string) (directory.Program, error) {
	var doc programDoc
	if err := repo.get(ctx, &doc, programCollection, id, directory.ErrProgramNotFound); err != nil {
		return directory.Program{}, err
	}
	return directory.Program{
		ID:         doc.ID.Hex(),
		Name:       doc.Name,
		TotalWeeks: doc.TotalWeeks,
		IsActive:   doc.IsActive,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

func (repo directoryRepository) GetBatch(ctx context.Context, id string) (directory.Batch, error) {
	var doc batchDoc
	if err := repo.get(ctx, &doc, batchCollection, id, directory.ErrBatchNotFound); err != nil {
		return directory.Batch{}, err
	}
	return directory.Batch{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		ProgramID: hexID(doc.Program),
		IsActive:  doc.IsActive,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (repo directoryRepository) CreateStudent(ctx context.Context, s directory.Student) (directory.Student, error) {
	doc := studentDoc{
		ID:        primitive.NewObjectID(),
		Name:      s.Name,
		Type:      s.Type,
		Email:     s.Email,
		MobileNo:  s.MobileNo,
		Batch:     refID(s.BatchID),
		Program:   refID(s.ProgramID),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC(),
	}
	if err := repo.insert(ctx, studentCollection, doc); err != nil {
		return directory.Student{}, err
	}
	s.ID = doc.ID.Hex()
	return s, nil
}

func (repo directoryRepository) CreateReviewer(ctx context.Context, r directory.Reviewer) (directory.Reviewer, error) {
	doc := reviewerDoc{
		ID:               primitive.NewObjectID(),
		FullName:         r.FullName,
		Username:         r.Username,
		Email:            r.Email,
		MobileNo:         r.MobileNo,
		TeachingPrograms: refIDs(r.TeachingPrograms),
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt.UTC(),
	}
	if err := repo.insert(ctx, reviewerCollection, doc); err != nil {
		return directory.Reviewer{}, err
	}
	r.ID = doc.ID.Hex()
	r.TeachingPrograms = hexIDs(doc.TeachingPrograms)
	return r, nil
}

func (repo directoryRepository) CreateProgram(ctx context.Context, p directory.Program) (directory.Program, error) {
	doc := programDoc{
		ID:         primitive.NewObjectID(),
		Name:       p.Name,
		TotalWeeks: p.TotalWeeks,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt.UTC(),
	}
	if err := repo.insert(ctx, programCollection, doc); err != nil {
		return directory.Program{}, err
	}
	p.ID = doc.ID.Hex()
	return p, nil
}

func (repo directoryRepository) CreateBatch(ctx context.Context, b directory.Batch) (directory.Batch, error) {
	doc := batchDoc{
		ID:        primitive.NewObjectID(),
		Name:      b.Name,
		Program:   refID(b.ProgramID),
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt.UTC(),
	}
	if err := repo.insert(ctx, batchCollection, doc); err != nil {
		return directory.Batch{}, err
	}
	b.ID = doc.ID.Hex()
	return b, nil
}
