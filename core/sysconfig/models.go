package sysconfig

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/mentorbro/core"
)

// Credential sections
const (
	SectionWhapi    = "whapi"
	SectionEmail    = "email"
	SectionFirebase = "firebase"
)

var (
	ErrNotFound = core.NewNotFoundError("system config")
	// ErrAlreadyExists is returned by repositories when another active config document got created first.
	ErrAlreadyExists = core.NewConflictError("an active system config already exists")
)

type (
	WhapiCredentials struct {
		Token         string `json:"token"`
		APIURL        string `json:"apiUrl"`
		DefaultNumber string `json:"defaultNumber"`
	}

	EmailCredentials struct {
		APIKey      string `json:"apiKey"`
		SenderEmail string `json:"senderEmail"`
		SenderName  string `json:"senderName"`
	}

	FirebaseCredentials struct {
		ClientEmail string `json:"clientEmail"`
		PrivateKey  string `json:"privateKey"`
		ProjectID   string `json:"projectId"`
	}

	// SystemConfig is the singleton document holding notification toggles and transport credentials.
	SystemConfig struct {
		ID       string              `json:"id"`
		Whapi    WhapiCredentials    `json:"whapi"`
		Email    EmailCredentials    `json:"email"`
		Firebase FirebaseCredentials `json:"firebase"`

		SendMailOnReviewerAssignToStudent        bool `json:"sendMailOnReviewerAssignToStudent"`
		ReceiveMessageOnWhatsappInReviewSchedule bool `json:"receiveMessageOnWhatsappInReviewSchedule"`

		IsActive  bool      `json:"isActive"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	Repository interface {
		// GetActiveConfig returns ErrNotFound when no active document exists.
		GetActiveConfig(ctx context.Context) (SystemConfig, error)
		// CreateConfig returns ErrAlreadyExists if an active document already exists.
		CreateConfig(ctx context.Context, c SystemConfig) (SystemConfig, error)
		UpdateConfig(ctx context.Context, c SystemConfig) (SystemConfig, error)
	}

	// Provider hands out the current settings. Consumers take it as a dependency instead of reading global state.
	Provider interface {
		Current(ctx context.Context) (SystemConfig, error)
	}
)

// Default returns the settings used when no document exists yet.
func Default() SystemConfig {
	return SystemConfig{
		Whapi: WhapiCredentials{APIURL: "https://gate.whapi.cloud"},
		Email: EmailCredentials{
			SenderEmail: "noreply@yourmentorbro.com",
			SenderName:  "MentorBro",
		},
		SendMailOnReviewerAssignToStudent:        true,
		ReceiveMessageOnWhatsappInReviewSchedule: true,
		IsActive:                                 true,
	}
}

// HasValidCredentials reports whether the required credentials of a section are all set.
func (c SystemConfig) HasValidCredentials(section string) bool {
	set := func(values ...string) bool {
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				return false
			}
		}
		return true
	}

	switch section {
	case SectionWhapi:
		return set(c.Whapi.Token, c.Whapi.APIURL)
	case SectionEmail:
		return set(c.Email.APIKey, c.Email.SenderEmail)
	case SectionFirebase:
		return set(c.Firebase.ClientEmail, c.Firebase.PrivateKey, c.Firebase.ProjectID)
	default:
		return false
	}
}

// Update is a partial update: nil fields are left untouched, set fields of a section are merged into it.
type Update struct {
	Whapi    *WhapiUpdate    `json:"whapi"`
	Email    *EmailUpdate    `json:"email"`
	Firebase *FirebaseUpdate `json:"firebase"`

	SendMailOnReviewerAssignToStudent        *bool `json:"sendMailOnReviewerAssignToStudent"`
	ReceiveMessageOnWhatsappInReviewSchedule *bool `json:"receiveMessageOnWhatsappInReviewSchedule"`
}

type (
	WhapiUpdate struct {
		Token         *string `json:"token"`
		APIURL        *string `json:"apiUrl" validate:"omitempty,url"`
		DefaultNumber *string `json:"defaultNumber"`
	}

	EmailUpdate struct {
		APIKey      *string `json:"apiKey"`
		SenderEmail *string `json:"senderEmail" validate:"omitempty,email"`
		SenderName  *string `json:"senderName"`
	}

	FirebaseUpdate struct {
		ClientEmail *string `json:"clientEmail" validate:"omitempty,email"`
		PrivateKey  *string `json:"privateKey"`
		ProjectID   *string `json:"projectId"`
	}
)

func mergeString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (u Update) apply(c *SystemConfig) {
	if u.Whapi != nil {
		mergeString(&c.Whapi.Token, u.Whapi.Token)
		mergeString(&c.Whapi.APIURL, u.Whapi.APIURL)
		mergeString(&c.Whapi.DefaultNumber, u.Whapi.DefaultNumber)
	}
	if u.Email != nil {
		mergeString(&c.Email.APIKey, u.Email.APIKey)
		mergeString(&c.Email.SenderEmail, u.Email.SenderEmail)
		mergeString(&c.Email.SenderName, u.Email.SenderName)
	}
	if u.Firebase != nil {
		mergeString(&c.Firebase.ClientEmail, u.Firebase.ClientEmail)
		mergeString(&c.Firebase.PrivateKey, u.Firebase.PrivateKey)
		mergeString(&c.Firebase.ProjectID, u.Firebase.ProjectID)
	}
	if u.SendMailOnReviewerAssignToStudent != nil {
		c.SendMailOnReviewerAssignToStudent = *u.SendMailOnReviewerAssignToStudent
	}
	if u.ReceiveMessageOnWhatsappInReviewSchedule != nil {
		c.ReceiveMessageOnWhatsappInReviewSchedule = *u.ReceiveMessageOnWhatsappInReviewSchedule
	}
}
