package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayOfWeek is a weekday name as stored in doctor_schedules.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

var weekOrder = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDayOfWeek accepts a case-insensitive weekday name.
func ParseDayOfWeek(raw string) (DayOfWeek, bool) {
	d := DayOfWeek(strings.ToLower(strings.TrimSpace(raw)))
	return d, d.Valid()
}

func (d DayOfWeek) Valid() bool {
	return d.Index() >= 0
}

// Index orders days Monday=0 .. Sunday=6, -1 for an unknown day.
func (d DayOfWeek) Index() int {
	for i, day := range weekOrder {
		if day == d {
			return i
		}
	}
	return -1
}

// DayOfWeekFrom converts a time.Weekday.
func DayOfWeekFrom(w time.Weekday) DayOfWeek {
	// time.Sunday == 0
	return weekOrder[(int(w)+6)%7]
}

// TimeOfDay is a wall-clock time in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", raw)
}

// TimeOfDayOf returns the wall-clock time of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Value stores the time as a MySQL TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

func (t *TimeOfDay) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	case time.Time:
		*t = TimeOfDayOf(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DoctorSchedule is a recurring weekly availability window. There is at most
// one row per (doctor_id, day_of_week).
type DoctorSchedule struct {
	BaseModel
	DoctorID    string    `gorm:"size:36;not null;uniqueIndex:idx_doctor_day" json:"doctorId"`
	DayOfWeek   DayOfWeek `gorm:"size:10;not null;uniqueIndex:idx_doctor_day" json:"dayOfWeek"`
	StartTime   TimeOfDay `gorm:"type:time;not null" json:"startTime"`
	EndTime     TimeOfDay `gorm:"type:time;not null" json:"endTime"`
	IsAvailable bool      `gorm:"not null" json:"isAvailable"`
}

// Covers reports whether the time of day falls inside [StartTime, EndTime).
func (s *DoctorSchedule) Covers(t TimeOfDay) bool {
	return s.IsAvailable && t >= s.StartTime && t < s.EndTime
}
