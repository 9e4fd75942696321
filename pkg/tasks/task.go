// Package tasks implements the task-manager demo domain: a thread-safe
// in-memory task store with analytics, plus tools, resources and prompts
// providers exposing it over MCP.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// Priority ranks tasks from low (1) to urgent (4).
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// Valid reports whether p is within the defined range.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// Name returns the uppercase priority name used in reports.
func (p Priority) Name() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityUrgent:
		return "URGENT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(p))
	}
}

// Task is a single unit of tracked work.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
}

// MarshalJSON adds the human-readable priority name alongside its numeric
// value.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		plain
		PriorityName string `json:"priority_name"`
	}{plain(t), t.Priority.Name()})
}

// Overdue reports whether the task is past its due date and not completed.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

// clone returns a deep copy so callers never share slices with the store.
func (t Task) clone() Task {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.Tags = append([]string(nil), t.Tags...)
	c.Dependencies = append([]string(nil), t.Dependencies...)
	return c
}

// User is a team member tasks can be assigned to.
type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Skills        []string `json:"skills"`
	MaxConcurrent int      `json:"max_concurrent_tasks"`
}
