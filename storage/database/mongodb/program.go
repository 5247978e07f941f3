package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/mentorbro/core/program"
)

type taskDoc struct {
	ID                 primitive.ObjectID   `bson:"_id"`
	Name               string               `bson:"name"`
	Week               int                  `bson:"week"`
	Program            primitive.ObjectID   `bson:"program"`
	Tasks              []string             `bson:"tasks"`
	Cost               primitive.Decimal128 `bson:"cost"`
	ReReviewFineAmount primitive.Decimal128 `bson:"re_review_fine_amount"`
	IsActive           bool                 `bson:"isActive"`
	CreatedAt          time.Time            `bson:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt"`
}

type taskRepository struct {
	coll *mongo.Collection
}

var _ program.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *mongo.Database) *taskRepository {
	return &taskRepository{coll: db.Collection(taskCollection)}
}

func (repo taskRepository) toDoc(t program.Task) taskDoc {
	doc := taskDoc{
		Name:               t.Name,
		Week:               t.Week,
		Tasks:              emptyIfNil(t.Tasks),
		Cost:               toDecimal128(t.Cost),
		ReReviewFineAmount: toDecimal128(t.ReReviewFineAmount),
		IsActive:           t.IsActive,
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
	if oid, ok := objectID(t.ID); ok {
		doc.ID = oid
	}
	if oid, ok := objectID(t.ProgramID); ok {
		doc.Program = oid
	}
	return doc
}

func (repo taskRepository) fromDoc(doc taskDoc) program.Task {
	return program.Task{
		ID:                 doc.ID.Hex(),
		Name:               doc.Name,
		Week:               doc.Week,
		ProgramID:          hexID(&doc.Program),
		Tasks:              emptyIfNil(doc.Tasks),
		Cost:               fromDecimal128(doc.Cost),
		ReReviewFineAmount: fromDecimal128(doc.ReReviewFineAmount),
		IsActive:           doc.IsActive,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
}

// trapWriteErr maps the partial unique index on active (program, week) to ErrDuplicateWeek.
func (repo taskRepository) trapWriteErr(err error, msg string) error {
	if mongo.IsDuplicateKeyError(err) {
		return program.ErrDuplicateWeek
	}
	return trapNoDocsErr(err, program.ErrNotFound, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, t program.Task) (program.Task, error) {
	if _, ok := objectID(t.ProgramID); !ok {
		return program.Task{}, errors.New("invalid program id")
	}
	doc := repo.toDoc(t)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return program.Task{}, repo.trapWriteErr(err, "inserting program task")
	}
	return repo.fromDoc(doc), nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string) (program.Task, error) {
	oid, ok := objectID(id)
	if !ok {
		return program.Task{}, program.ErrNotFound
	}
	var doc taskDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return program.Task{}, trapNoDocsErr(err, program.ErrNotFound, "getting program task")
	}
	return repo.fromDoc(doc), nil
}

func (repo taskRepository) GetTaskByWeek(ctx context.Context, programID string, week int) (program.Task, error) {
	oid, ok := objectID(programID)
	if !ok {
		return program.Task{}, program.ErrNotFound
	}
	var doc taskDoc
	if err := repo.coll.FindOne(ctx, bson.M{"program": oid, "week": week, "isActive": true}).Decode(&doc); err != nil {
		return program.Task{}, trapNoDocsErr(err, program.ErrNotFound, "getting program task by week")
	}
	return repo.fromDoc(doc), nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, programID string) ([]program.Task, error) {
	q := bson.M{"isActive": true}
	if programID != "" {
		oid, ok := objectID(programID)
		if !ok {
			return []program.Task{}, nil
		}
		q["program"] = oid
	}

	opts := options.Find().SetSort(bson.D{{Key: "program", Value: 1}, {Key: "week", Value: 1}})
	cur, err := repo.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding program tasks")
	}
	var docs []taskDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding program tasks")
	}
	tasks := make([]program.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, repo.fromDoc(doc))
	}
	return tasks, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t program.Task) (program.Task, error) {
	oid, ok := objectID(t.ID)
	if !ok {
		return program.Task{}, program.ErrNotFound
	}
	update, err := setFields(repo.toDoc(t), "createdAt")
	if err != nil {
		return program.Task{}, errors.Wrap(err, "encoding program task")
	}

	var doc taskDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return program.Task{}, repo.trapWriteErr(err, "updating program task")
	}
	return repo.fromDoc(doc), nil
}
