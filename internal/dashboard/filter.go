// Package dashboard derives the task and ledger views: filtering, deadline
// buckets, aggregates, the cross-filter selection, and bulk edit.
package dashboard

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/intent"
)

// ErrValidation marks input rejected before any side effect.
var ErrValidation = errors.New("validation failed")

// Bucket is the derived state of a task deadline.
type Bucket string

const (
	BucketNoDeadline Bucket = "no_deadline"
	BucketInvalid    Bucket = "invalid"
	BucketOverdue    Bucket = "overdue"
	BucketUpcoming   Bucket = "upcoming"
)

// ParseBucket accepts bucket names case-insensitively, with spaces,
// dashes or underscores. Empty and "all" mean no bucket filter.
func ParseBucket(s string) (Bucket, error) {
	norm := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "", "all":
		return "", nil
	case "nodeadline":
		return BucketNoDeadline, nil
	case "invalid":
		return BucketInvalid, nil
	case "overdue":
		return BucketOverdue, nil
	case "upcoming":
		return BucketUpcoming, nil
	}
	return "", fmt.Errorf("%w: unknown deadline bucket %q", ErrValidation, s)
}

// BucketOf classifies the deadline of t relative to now.
func BucketOf(t entity.Task, now time.Time, loc *time.Location) Bucket {
	if strings.TrimSpace(t.Deadline) == "" {
		return BucketNoDeadline
	}
	due, err := entity.ParseDeadline(t.Deadline, loc)
	if err != nil {
		return BucketInvalid
	}
	if due.Before(now) {
		return BucketOverdue
	}
	return BucketUpcoming
}

// Filter narrows the task view. Zero fields match everything; set fields
// combine with AND.
type Filter struct {
	Priority intent.Priority `json:"priority,omitempty"`
	Assignee string          `json:"assignee,omitempty"`
	Bucket   Bucket          `json:"bucket,omitempty"`
	Query    string          `json:"q,omitempty"`
}

// ParsePriority matches High, Medium or Low case-insensitively. Empty and
// "all" mean no priority filter.
func ParsePriority(s string) (intent.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case "high":
		return intent.PriorityHigh, nil
	case "medium":
		return intent.PriorityMedium, nil
	case "low":
		return intent.PriorityLow, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
}

// ParseFilter builds a Filter from loosely formatted inputs such as query
// parameters or tool arguments.
func ParseFilter(priority, assignee, bucket, query string) (Filter, error) {
	p, err := ParsePriority(priority)
	if err != nil {
		return Filter{}, err
	}
	b, err := ParseBucket(bucket)
	if err != nil {
		return Filter{}, err
	}
	assignee = strings.TrimSpace(assignee)
	if strings.EqualFold(assignee, "all") {
		assignee = ""
	}
	return Filter{Priority: p, Assignee: assignee, Bucket: b, Query: query}, nil
}

// Apply returns the tasks matching f, preserving order. Non-task results
// never appear, and the overdue bucket hides completed tasks.
func Apply(tasks []entity.Task, f Filter, now time.Time, loc *time.Location) []entity.Task {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]entity.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsTask {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Assignee != "" && t.Assignee != f.Assignee {
			continue
		}
		if f.Bucket != "" {
			if BucketOf(t, now, loc) != f.Bucket {
				continue
			}
			if f.Bucket == BucketOverdue && t.Status == entity.StatusCompleted {
				continue
			}
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.TaskName), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Stats are aggregates over a filtered task set.
type Stats struct {
	Total          int `json:"total"`
	High           int `json:"high"`
	Medium         int `json:"medium"`
	Low            int `json:"low"`
	Completed      int `json:"completed"`
	InProgress     int `json:"inProgress"`
	CompletionRate int `json:"completionRate"`
}

// ComputeStats aggregates tasks. CompletionRate is a rounded percentage in
// [0,100] and is 0 for an empty set.
func ComputeStats(tasks []entity.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Priority {
		case intent.PriorityHigh:
			s.High++
		case intent.PriorityMedium:
			s.Medium++
		case intent.PriorityLow:
			s.Low++
		}
		switch t.Status {
		case entity.StatusCompleted:
			s.Completed++
		case entity.StatusInProgress:
			s.InProgress++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// Assignees lists distinct non-empty assignees of tasks in first-seen order.
func Assignees(tasks []entity.Task) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range tasks {
		if !t.IsTask || t.Assignee == "" || seen[t.Assignee] {
			continue
		}
		seen[t.Assignee] = true
		out = append(out, t.Assignee)
	}
	return out
}
