package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyInput      = errors.New("empty input")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTZ       = errors.New("invalid timezone")
	ErrDelayOutOfRange = errors.New("reminder delay out of range")
)

// ParseTriggerTime parses "HH:MM" into hour and minute.
func ParseTriggerTime(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, ErrEmptyInput
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected HH:MM", ErrInvalidTime)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour %q", ErrInvalidTime, parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q", ErrInvalidTime, parts[1])
	}
	return hour, minute, nil
}

// ParseVacationDate parses "YYYY-MM-DD" into a UTC date. Dates before today
// are rejected: a vacation cannot end before it starts.
func ParseVacationDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyInput
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		return time.Time{}, fmt.Errorf("%w: %s is in the past", ErrInvalidDate, s)
	}
	return d, nil
}

// ParseReminderDelay parses the late-reminder delay in whole hours,
// bounded to [MinReminderDelayHours, MaxReminderDelayHours].
func ParseReminderDelay(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyInput
	}
	h, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrDelayOutOfRange, s)
	}
	if h < MinReminderDelayHours || h > MaxReminderDelayHours {
		return 0, fmt.Errorf("%w: %d (allowed %d-%d)",
			ErrDelayOutOfRange, h, MinReminderDelayHours, MaxReminderDelayHours)
	}
	return h, nil
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", ErrEmptyInput
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTZ, tz)
	}
	return loc.String(), nil
}

// FormatTriggerTime returns HH:MM for a trigger hour and minute.
func FormatTriggerTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// CivilDay returns the YYYY-MM-DD day key for t in the given location.
// Response and reminder uniqueness is scoped to this key.
func CivilDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
