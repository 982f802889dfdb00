package entity

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDeadline is returned for deadline strings no layout accepts.
var ErrInvalidDeadline = errors.New("invalid deadline")

// zonedLayouts carry their own offset; localLayouts are read in the
// configured location. A date with no time of day means midnight.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04Z07:00"}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseDeadline parses the free-form deadline of a task. Deadlines are
// not validated at creation so callers must expect ErrInvalidDeadline.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDeadline
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}
