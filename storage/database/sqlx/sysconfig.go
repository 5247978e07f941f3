package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mentorbro/core/sysconfig"
	"github.com/trezcool/mentorbro/storage/database"
)

var configColumns = []string{
	"id",
	"whapi_token", "whapi_api_url", "whapi_default_number",
	"email_api_key", "email_sender_email", "email_sender_name",
	"firebase_client_email", "firebase_private_key", "firebase_project_id",
	"send_mail_on_reviewer_assign_to_student", "receive_message_on_whatsapp_in_review_schedule",
	"is_active", "created_at", "updated_at",
}

type configRow struct {
	ID                 string `db:"id"`
	WhapiToken         string `db:"whapi_token"`
	WhapiAPIURL        string `db:"whapi_api_url"`
	WhapiDefaultNumber string `db:"whapi_default_number"`

	EmailAPIKey      string `db:"email_api_key"`
	EmailSenderEmail string `db:"email_sender_email"`
	EmailSenderName  string `db:"email_sender_name"`

	FirebaseClientEmail string `db:"firebase_client_email"`
	FirebasePrivateKey  string `db:"firebase_private_key"`
	FirebaseProjectID   string `db:"firebase_project_id"`

	SendMailOnReviewerAssignToStudent        bool `db:"send_mail_on_reviewer_assign_to_student"`
	ReceiveMessageOnWhatsappInReviewSchedule bool `db:"receive_message_on_whatsapp_in_review_schedule"`

	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type configRepository struct {
	db *sqlx.DB
}

var _ sysconfig.Repository = (*configRepository)(nil)

func NewConfigRepository(db *sqlx.DB) *configRepository {
	return &configRepository{db: db}
}

func (repo configRepository) toRow(c sysconfig.SystemConfig) configRow {
	return configRow{
		ID:                                       c.ID,
		WhapiToken:                               c.Whapi.Token,
		WhapiAPIURL:                              c.Whapi.APIURL,
		WhapiDefaultNumber:                       c.Whapi.DefaultNumber,
		EmailAPIKey:                              c.Email.APIKey,
		EmailSenderEmail:                         c.Email.SenderEmail,
		EmailSenderName:                          c.Email.SenderName,
		FirebaseClientEmail:                      c.Firebase.ClientEmail,
		FirebasePrivateKey:                       c.Firebase.PrivateKey,
		FirebaseProjectID:                        c.Firebase.ProjectID,
		SendMailOnReviewerAssignToStudent:        c.SendMailOnReviewerAssignToStudent,
		ReceiveMessageOnWhatsappInReviewSchedule: c.ReceiveMessageOnWhatsappInReviewSchedule,
		IsActive:                                 c.IsActive,
		CreatedAt:                                c.CreatedAt.UTC(),
		UpdatedAt:                                c.UpdatedAt.UTC(),
	}
}

func (repo configRepository) fromRow(row configRow) sysconfig.SystemConfig {
	return sysconfig.SystemConfig{
		ID: row.ID,
		Whapi: sysconfig.WhapiCredentials{
			Token:         row.WhapiToken,
			APIURL:        row.WhapiAPIURL,
			DefaultNumber: row.WhapiDefaultNumber,
		},
		Email: sysconfig.EmailCredentials{
			APIKey:      row.EmailAPIKey,
			SenderEmail: row.EmailSenderEmail,
			SenderName:  row.EmailSenderName,
		},
		Firebase: sysconfig.FirebaseCredentials{
			ClientEmail: row.FirebaseClientEmail,
			PrivateKey:  row.FirebasePrivateKey,
			ProjectID:   row.FirebaseProjectID,
		},
		SendMailOnReviewerAssignToStudent:        row.SendMailOnReviewerAssignToStudent,
		ReceiveMessageOnWhatsappInReviewSchedule: row.ReceiveMessageOnWhatsappInReviewSchedule,
		IsActive:                                 row.IsActive,
		CreatedAt:                                row.CreatedAt,
		UpdatedAt:                                row.UpdatedAt,
	}
}

func (repo configRepository) GetActiveConfig(ctx context.Context) (sysconfig.SystemConfig, error) {
	var row configRow
	q := "SELECT " + columnList(configColumns) + " FROM system_config WHERE is_active LIMIT 1"
	if err := repo.db.GetContext(ctx, &row, q); err != nil {
		return sysconfig.SystemConfig{}, trapNoRowsErr(err, sysconfig.ErrNotFound, "getting active config")
	}
	return repo.fromRow(row), nil
}

func (repo configRepository) CreateConfig(ctx context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	c.ID = uuid.New().String()
	q := "INSERT INTO system_config (" + columnList(configColumns) + ") VALUES (" + namedList(configColumns) + ")" +
		" RETURNING " + columnList(configColumns)

	var row configRow
	if err := namedGet(ctx, repo.db, &row, q, repo.toRow(c)); err != nil {
		if database.IsUniqueViolation(err) {
			return sysconfig.SystemConfig{}, sysconfig.ErrAlreadyExists
		}
		return sysconfig.SystemConfig{}, trapNoRowsErr(err, sysconfig.ErrNotFound, "inserting config")
	}
	return repo.fromRow(row), nil
}

func (repo configRepository) UpdateConfig(ctx context.Context, c sysconfig.SystemConfig) (sysconfig.SystemConfig, error) {
	if !validID(c.ID) {
		return sysconfig.SystemConfig{}, sysconfig.ErrNotFound
	}
	cols := configColumns[1 : len(configColumns)-2]
	q := "UPDATE system_config SET " + namedSet(cols) + ", updated_at = :updated_at WHERE id = :id" +
		" RETURNING " + columnList(configColumns)

	var row configRow
	if err := namedGet(ctx, repo.db, &row, q, repo.toRow(c)); err != nil {
		return sysconfig.SystemConfig{}, trapNoRowsErr(err, sysconfig.ErrNotFound, "updating config")
	}
	return repo.fromRow(row), nil
}
