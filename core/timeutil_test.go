package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantHour int
		wantMin  int
		wantOk   bool
	}{
		{name: "AM", in: "10:30 AM", wantHour: 10, wantMin: 30, wantOk: true},
		{name: "PM", in: "02:15 PM", wantHour: 14, wantMin: 15, wantOk: true},
		{name: "lower case no space", in: "9:05pm", wantHour: 21, wantMin: 5, wantOk: true},
		{name: "12 AM is midnight", in: "12:00 AM", wantHour: 0, wantMin: 0, wantOk: true},
		{name: "12 PM stays noon", in: "12:45 PM", wantHour: 12, wantMin: 45, wantOk: true},
		{name: "24h", in: "14:05", wantHour: 14, wantMin: 5, wantOk: true},
		{name: "24h with PM suffix", in: "14:05 PM", wantHour: 14, wantMin: 5, wantOk: true},
		{name: "garbage", in: "soon", wantOk: false},
		{name: "empty", in: "", wantOk: false},
		{name: "out of range", in: "25:10", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, ok := ParseTimeOfDay(tt.in)
			if ok != tt.wantOk {
				t.Fatalf("ParseTimeOfDay(%q) ok = %v, want %v", tt.in, ok, tt.wantOk)
			}
			if ok {
				assert.Equal(t, tt.wantHour, h)
				assert.Equal(t, tt.wantMin, m)
			}
		})
	}
}

func TestAtTimeOfDay(t *testing.T) {
	// 2025-01-25 23:00 UTC is already 26th in IST
	day := time.Date(2025, 1, 25, 23, 0, 0, 0, time.UTC)
	got, ok := AtTimeOfDay(day, "09:15 AM")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 26, 9, 15, 0, 0, IST), got)

	_, ok = AtTimeOfDay(day, "whenever")
	assert.False(t, ok)
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC) // 11th 01:30 IST
	start := StartOfDay(now)
	end := EndOfDay(now)

	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, IST), start)
	assert.Equal(t, time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, start.AddDate(0, 0, 1).Add(-time.Nanosecond), end)
	assert.Equal(t, "2025-03-11", DateKey(now))
}

func TestFlexTime(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "date", in: `"2025-01-25"`, want: time.Date(2025, 1, 25, 0, 0, 0, 0, IST)},
		{name: "rfc3339", in: `"2025-01-25T04:30:00Z"`, want: time.Date(2025, 1, 25, 4, 30, 0, 0, time.UTC)},
		{name: "null", in: `null`},
		{name: "garbage", in: `"tomorrow"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ft FlexTime
			err := ft.UnmarshalJSON([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				assert.True(t, tt.want.Equal(ft.Time), "got %v, want %v", ft.Time, tt.want)
			}
		})
	}
}
