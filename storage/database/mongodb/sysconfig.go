package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/mentorbro/core/sysconfig"
)

type (
	whapiDoc struct {
		Token         string `bson:"token"`
		APIURL        string `bson:"apiUrl"`
		DefaultNumber string `bson:"defaultNumber"`
	}

	brevoDoc struct {
		APIKey      string `bson:"apiKey"`
		SenderEmail string `bson:"senderEmail"`
		SenderName  string `bson:"senderName"`
	}

	firebaseDoc struct {
		ClientEmail string `bson:"clientEmail"`
		PrivateKey  string `bson:"privateKey"`
		ProjectID   string `bson:"projectId"`
	}

	configDoc struct {
		ID       primitive.ObjectID `bson:"_id"`
		Whapi    whapiDoc           `bson:"whapi"`
		Brevo    brevoDoc           `bson:"brevo"`
		Firebase firebaseDoc        `bson:"firebase"`

		SendMailOnReviewerAssignToStudent        bool `bson:"send_mail_on_reviewer_assign_to_student"`
		ReceiveMessageOnWhatsappInReviewSchedule bool `bson:"receive_message_on_whatsapp_in_review_schedule"`

		IsActive  bool      `bson:"isActive"`
		CreatedAt time.Time `bson:"createdAt"`
		UpdatedAt time.Time `bson:"updatedAt"`
	}
)

type configRepository struct {
	coll *mongo.Collection
}

var _ sysconfig.Repository = (*configRepository)(nil)

func NewConfigRepository(db *mongo.Database) *configRepository {
	return &configRepository{coll: db.Collection(configCollection)}
}

func (repo configRepository) toDoc(c sysconfig.SystemConfig) configDoc {
	doc := configDoc{
		Whapi:                                    whapiDoc(c.Whapi),
		Brevo:                                    brevoDoc(c.Email),
		Firebase:                                 firebaseDoc(c.Firebase),
		SendMailOnReviewerAssignToStudent:        c.SendMailOnReviewerAssignToStudent,
		ReceiveMessageOnWhatsappInReviewSchedule: c.ReceiveMessageOnWhatsappInReviewSchedule,
		IsActive:                                 c.IsActive,
		CreatedAt:                                c.CreatedAt.UTC(),
		UpdatedAt:                                c.UpdatedAt.UTC(),
	}
	if oid, ok := objectID(c.ID); ok {
		doc.ID = oid
	}
	return doc
}

func (repo configRepository) fromDoc(doc configDoc) sysconfig.SystemConfig {
	return sysconfig.SystemConfig{
		ID:                                       doc.ID.Hex(),
		Whapi:                                    sysconfig.WhapiCredentials(doc.Whapi),
		Email:                                    sysconfig.EmailCredentials(doc.Brevo),
		Firebase:                                 sysconfig.FirebaseCredentials(doc.Firebase),
		SendMailOnReviewerAssignToStudent:        doc.SendMailOnReviewerAssignToStudent,
		ReceiveMessageOnWhatsappInReviewSchedule: doc.ReceiveMessageOnWhatsappInReviewSchedule,
		IsActive:                                 doc.IsActive,
		CreatedAt:                                doc.CreatedAt,
		UpdatedAt:                                doc.UpdatedAt,
	}
}

func (repo configRepository) GetActiveConfig(ctx context.Context) (sysconfig.SystemConfig, error) {
	var doc configDoc
	if err := repo.coll.FindOne(ctx, bson.M{"isActive": true}).Decode(&doc); err != nil {
		return sysconfig.SystemConfig{}, trapNoDocsErr(err, sysconfig.ErrNotFound, "getting active config")
	}
	return repo.fromDoc(doc), nil
}

func (repo configRepository) CreateConfig(ctx context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	doc := repo.toDoc(c)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return sysconfig.SystemConfig{}, sysconfig.ErrAlreadyExists
		}
		return sysconfig.SystemConfig{}, errors.Wrap(err, "inserting config")
	}
	return repo.fromDoc(doc), nil
}

func (repo configRepository) UpdateConfig(ctx context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	oid, ok := objectID(c.ID)
	if !ok {
		return sysconfig.SystemConfig{}, sysconfig.ErrNotFound
	}
	update, err := setFields(repo.toDoc(c), "createdAt")
	if err != nil {
		return sysconfig.SystemConfig{}, errors.Wrap(err, "encoding config")
	}

	var doc configDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return sysconfig.SystemConfig{}, trapNoDocsErr(err, sysconfig.ErrNotFound, "updating config")
	}
	return repo.fromDoc(doc), nil
}
