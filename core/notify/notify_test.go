package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mentorbro/core"
)

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		name string
		to   string
		want string
	}{
		{name: "group id untouched", to: "120363417698652224@g.us", want: "120363417698652224@g.us"},
		{name: "10 digits get country code", to: "98765 43210", want: "919876543210@s.whatsapp.net"},
		{name: "already prefixed", to: "+91 98765-43210", want: "919876543210@s.whatsapp.net"},
		{name: "foreign number", to: "+1 (415) 555-0100", want: "14155550100@s.whatsapp.net"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRecipient(tt.to); got != tt.want {
				t.Errorf("NormalizeRecipient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderMessage(t *testing.T) {
	date := time.Date(2025, 1, 25, 0, 0, 0, 0, core.IST) // a Saturday
	score := 17.5

	tests := []struct {
		name     string
		tmpl     TemplateType
		data     Data
		wantOk   bool
		contains []string
		excludes []string
	}{
		{
			name: "scheduled", tmpl: ReviewScheduled, wantOk: true,
			data:     Data{StudentName: "Asha", TaskName: "Week 1", Date: date, Time: "10:30 AM", SecondTime: "11:00 AM", BatchName: "B12"},
			contains: []string{"*Review Scheduled*", "Student: *Asha*", "*Batch:* B12", "*Date:* 25/01/2025", "*Primary Time:* 10:30 AM", "*Alt Time:* 11:00 AM"},
		},
		{
			name: "scheduled falls back to student email", tmpl: ReviewScheduled, wantOk: true,
			data:     Data{StudentEmail: "asha@test.in", TaskName: "Week 1", Date: date, Time: "10:30 AM"},
			contains: []string{"Student: *asha@test.in*"},
			excludes: []string{"Batch", "Alt Time"},
		},
		{
			name: "reminder with reviewer", tmpl: ReviewReminder, wantOk: true,
			data:     Data{TaskName: "Week 2", Time: "09:15 AM", ReviewerName: "Ravi"},
			contains: []string{"*Review Reminder for *Ravi**", "Student: *Student*", "today at *09:15 AM*"},
		},
		{
			name: "reviewer assigned uses weekday", tmpl: ReviewerAssigned, wantOk: true,
			data:     Data{StudentName: "Asha", Date: date, Time: "10:30 AM"},
			contains: []string{"*Asha's* review scheduled for *10:30 AM* *Saturday* by *Mentor* (Reviewer)."},
		},
		{
			name: "cancelled", tmpl: ReviewCancelled, wantOk: true,
			data:     Data{StudentName: "Asha", Date: date, Time: "10:30 AM", CancelledBy: "admin", Reason: "sick"},
			contains: []string{"*CANCELLED*", "*Cancelled By:* admin", "*Reason:* sick"},
		},
		{
			name: "completed", tmpl: ReviewCompleted, wantOk: true,
			data:     Data{StudentName: "Asha", TaskName: "Week 1", Status: "good", Score: &score},
			contains: []string{"*Status:* good", "*Total Score:* 17.5/20", "Well done!"},
		},
		{
			name: "unassigned", tmpl: ReviewerUnassigned, wantOk: true,
			data:     Data{StudentName: "Asha", Date: date, Time: "10:30 AM"},
			contains: []string{"*UNASSIGNED*", "on *25/01/2025* at *10:30 AM*"},
		},
		{name: "unknown with message", tmpl: "CUSTOM", data: Data{Message: "hello"}, wantOk: true, contains: []string{"hello"}},
		{name: "unknown without message", tmpl: "CUSTOM", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RenderMessage(tt.tmpl, tt.data)
			if ok != tt.wantOk {
				t.Fatalf("RenderMessage() ok = %v, want %v", ok, tt.wantOk)
			}
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.False(t, strings.Contains(got, s), "unexpected %q in %q", s, got)
			}
		})
	}
}
