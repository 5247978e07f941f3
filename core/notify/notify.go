// Package notify defines the messaging transport the review workflow and the reminder scheduler talk to.
package notify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trezcool/mentorbro/core"
)

type TemplateType string

const (
	ReviewScheduled    TemplateType = "REVIEW_SCHEDULED"
	ReviewReminder     TemplateType = "REVIEW_REMINDER"
	ReviewerAssigned   TemplateType = "REVIEWER_ASSIGNED"
	ReviewCancelled    TemplateType = "REVIEW_CANCELLED"
	ReviewCompleted    TemplateType = "REVIEW_COMPLETED"
	ReviewerUnassigned TemplateType = "REVIEWER_UNASSIGNED"
)

const (
	ErrNotConfigured = "WhatsApp service not configured"
	ErrNoRecipient   = "No recipient number provided and no default configured"
	ErrNoContent     = "No message content provided"
)

type (
	// Result is the outcome of a send. Transports never return errors nor panic: failures are data.
	Result struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data,omitempty"`
		Error   string      `json:"error,omitempty"`
	}

	// Data populates a template. Zero values are treated as absent.
	Data struct {
		StudentName      string
		StudentUsername  string
		StudentEmail     string
		BatchName        string
		TaskName         string
		Date             time.Time
		Time             string
		SecondTime       string
		ReviewerName     string
		ReviewerUsername string
		ReviewerEmail    string
		CancelledBy      string
		Reason           string
		Status           string
		Score            *float64
		Message          string // free-form body for unknown template types
	}

	Transport interface {
		SendTextMessage(ctx context.Context, to, body string) Result
		SendNotification(ctx context.Context, to string, tmpl TemplateType, data Data) Result
	}
)

func Failed(msg string) Result {
	return Result{Success: false, Error: msg}
}

func Succeeded(data interface{}) Result {
	return Result{Success: true, Data: data}
}

// IsValid reports whether t is one of the known template types.
func (t TemplateType) IsValid() bool {
	switch t {
	case ReviewScheduled, ReviewReminder, ReviewerAssigned, ReviewCancelled, ReviewCompleted, ReviewerUnassigned:
		return true
	}
	return false
}

// formatDate renders dates as dd/mm/yyyy in IST.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(core.IST).Format("02/01/2006")
}

// RenderMessage builds the message body of a template. ok is false when there is nothing to send.
func RenderMessage(tmpl TemplateType, data Data) (msg string, ok bool) {
	studentName := core.FirstNonEmpty(data.StudentName, data.StudentUsername, data.StudentEmail, "Student")
	date := formatDate(data.Date)
	var batchInfo, secondTimeInfo string
	if data.BatchName != "" {
		batchInfo = "\n*Batch:* " + data.BatchName
	}
	if data.SecondTime != "" {
		secondTimeInfo = "\n*Alt Time:* " + data.SecondTime
	}

	switch tmpl {
	case ReviewScheduled:
		msg = fmt.Sprintf("🔴 *Review Scheduled*\n\nStudent: *%s*%s\n\nYour review for *%s* has been scheduled.\n\n*Date:* %s\n*Primary Time:* %s%s\n\nGood luck!",
			studentName, batchInfo, data.TaskName, date, data.Time, secondTimeInfo)

	case ReviewReminder:
		var header string
		if data.ReviewerName != "" {
			header = " for *" + data.ReviewerName + "*"
		}
		msg = fmt.Sprintf("⏰ *Review Reminder%s*\n\nStudent: *%s*%s\n\nFriendly reminder that your review for *%s* is scheduled for today at *%s*.\n\nPlease be ready on time. Good luck!",
			header, studentName, batchInfo, data.TaskName, data.Time)

	case ReviewerAssigned:
		reviewerName := core.FirstNonEmpty(data.ReviewerName, data.ReviewerUsername, data.ReviewerEmail, "Mentor")
		dayName := "Scheduled Day"
		if !data.Date.IsZero() {
			dayName = data.Date.In(core.IST).Weekday().String()
		}
		msg = fmt.Sprintf("👤 *Reviewer Assigned*\n\n*%s's* review scheduled for *%s* *%s* by *%s* (Reviewer).",
			studentName, data.Time, dayName, reviewerName)

	case ReviewCancelled:
		var extra string
		if data.CancelledBy != "" {
			extra += "\n*Cancelled By:* " + data.CancelledBy
		}
		if data.Reason != "" {
			extra += "\n*Reason:* " + data.Reason
		}
		msg = fmt.Sprintf("❌ *Review Cancelled*\n\nReview for *%s* on *%s* at *%s* has been *CANCELLED*.%s",
			studentName, date, data.Time, extra)

	case ReviewCompleted:
		var extra string
		if data.Status != "" {
			extra += "\n*Status:* " + data.Status
		}
		if data.Score != nil {
			extra += fmt.Sprintf("\n*Total Score:* %g/20", *data.Score)
		}
		msg = fmt.Sprintf("✅ *Review Completed*\n\nReview for *%s* for *%s* has been completed.%s\n\nWell done!",
			studentName, data.TaskName, extra)

	case ReviewerUnassigned:
		msg = fmt.Sprintf("👤 *Reviewer Unassigned*\n\nReview for *%s* on *%s* at *%s* is now *UNASSIGNED* and available for other reviewers.",
			studentName, date, data.Time)

	default:
		msg = data.Message
	}
	return msg, msg != ""
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeRecipient turns a phone number into a WhatsApp chat id.
// Ids that already contain '@' (groups, formatted ids) are returned as is.
// 10-digit numbers are considered Indian numbers and get the 91 country code.
func NormalizeRecipient(to string) string {
	to = strings.TrimSpace(to)
	if strings.Contains(to, "@") {
		return to
	}
	digits := nonDigits.ReplaceAllString(to, "")
	if len(digits) == 10 {
		digits = "91" + digits
	}
	return digits + "@s.whatsapp.net"
}
