package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// IST is the fixed UTC+5:30 offset all schedules are expressed in. No DST, no tz database.
var IST = time.FixedZone("IST", 5*60*60+30*60)

var timeOfDayRegex = regexp.MustCompile(`(?i)(\d+):(\d+)\s*(AM|PM)?`)

// ParseTimeOfDay parses free-text times such as "10:30 AM", "9:05pm" or "14:05" into 24-hour hour & minute.
func ParseTimeOfDay(s string) (hour, min int, ok bool) {
	m := timeOfDayRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	min, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}

	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || min > 59 {
		return 0, 0, false
	}
	return hour, min, true
}

// AtTimeOfDay returns the point in time of `timeStr` on the IST calendar day of `day`.
func AtTimeOfDay(day time.Time, timeStr string) (time.Time, bool) {
	hour, min, ok := ParseTimeOfDay(timeStr)
	if !ok {
		return time.Time{}, false
	}
	d := day.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, IST), true
}

// StartOfDay returns 00:00:00 of the IST calendar day of t.
func StartOfDay(t time.Time) time.Time {
	d := t.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, IST)
}

// EndOfDay returns the last nanosecond of the IST calendar day of t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DateKey formats t as the IST calendar day "2006-01-02".
func DateKey(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}

// FlexTime is a time input accepting RFC3339 timestamps or plain "2006-01-02" dates (IST midnight).
type FlexTime struct {
	time.Time
}

func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		ft.Time = time.Time{}
		return nil
	}
	return ft.UnmarshalParam(s)
}

// UnmarshalParam lets echo bind query params to a FlexTime.
func (ft *FlexTime) UnmarshalParam(s string) error {
	if t, err := time.ParseInLocation("2006-01-02", s, IST); err == nil {
		ft.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}
