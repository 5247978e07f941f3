// Package mongorepos implements the repositories over MongoDB.
package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/mentorbro/core"
)

// Collections
const (
	reviewCollection   = "taskreviews"
	taskCollection     = "programtasks"
	studentCollection  = "students"
	reviewerCollection = "reviewers"
	programCollection  = "programs"
	batchCollection    = "batches"
	configCollection   = "systemconfigs"
)

// Open connects to the configured MongoDB deployment and waits for it to be reachable.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client.Database(conf.Database.Name), nil
}

// ping waits for the deployment to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mongo ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "mongo ping timeout")
}

// Close disconnects the client of db.
func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. Safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		reviewCollection: {
			{Keys: bson.D{{Key: "student", Value: 1}}},
			{Keys: bson.D{{Key: "reviewer", Value: 1}}},
			{Keys: bson.D{{Key: "program", Value: 1}}},
			{Keys: bson.D{{Key: "scheduledDate", Value: 1}}},
		},
		taskCollection: {
			// old weeks can be reused once their task is soft-deleted
			{
				Keys: bson.D{{Key: "program", Value: 1}, {Key: "week", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"isActive": true}),
			},
			{Keys: bson.D{{Key: "week", Value: 1}}},
		},
		configCollection: {
			{
				Keys: bson.D{{Key: "isActive", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"isActive": true}),
			},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

// trapNoDocsErr maps "no documents" to notFound. A disconnected client cannot recover: it asks for a shutdown.
func trapNoDocsErr(err error, notFound error, msg string) error {
	switch errors.Cause(err) {
	case mongo.ErrNoDocuments:
		return notFound
	case mongo.ErrClientDisconnected:
		return core.NewShutdownError(msg + ": mongo client disconnected")
	}
	return errors.Wrap(err, msg)
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// refID maps an empty (or malformed) reference to nil.
func refID(id string) *primitive.ObjectID {
	if oid, ok := objectID(id); ok {
		return &oid
	}
	return nil
}

func hexID(oid *primitive.ObjectID) string {
	if oid == nil || oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

func refIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	return oids
}

func hexIDs(oids []primitive.ObjectID) []string {
	ids := make([]string, 0, len(oids))
	for _, oid := range oids {
		ids = append(ids, oid.Hex())
	}
	return ids
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	dec, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return dec
}

func fromDecimal128(dec primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(dec.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func stringPtr(s null.String) *string {
	return s.Ptr()
}

func float64Ptr(f null.Float64) *float64 {
	return f.Ptr()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// setFields renders doc as a $set update, leaving out the given fields.
func setFields(doc interface{}, omit ...string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	fields := bson.M{}
	if err = bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "_id")
	for _, f := range omit {
		delete(fields, f)
	}
	return bson.M{"$set": fields}, nil
}
