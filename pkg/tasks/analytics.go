package tasks

import (
	"fmt"
	"strings"
)

// UserWorkload summarizes one user's task load.
type UserWorkload struct {
	Name           string `json:"name"`
	TotalTasks     int    `json:"total_tasks"`
	ActiveTasks    int    `json:"active_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	MaxConcurrent  int    `json:"max_concurrent_tasks"`
}

// Analytics aggregates task metrics across the store.
type Analytics struct {
	TotalTasks           int                     `json:"total_tasks"`
	CompletedTasks       int                     `json:"completed_tasks"`
	CompletionRate       float64                 `json:"completion_rate"`
	OverdueTasks         int                     `json:"overdue_tasks"`
	UserWorkloads        map[string]UserWorkload `json:"user_workloads"`
	PriorityDistribution map[string]int          `json:"priority_distribution"`
}

// Analytics computes completion rate, overdue count, per-user workloads and
// the priority distribution. The completion rate is a percentage.
func (s *Store) Analytics() Analytics {
	tasks := s.List()
	now := s.now()

	a := Analytics{
		TotalTasks:    len(tasks),
		UserWorkloads: make(map[string]UserWorkload),
		PriorityDistribution: map[string]int{
			PriorityLow.Name(): 0, PriorityMedium.Name(): 0,
			PriorityHigh.Name(): 0, PriorityUrgent.Name(): 0,
		},
	}

	for _, task := range tasks {
		if task.Status == StatusCompleted {
			a.CompletedTasks++
		}
		if task.Overdue(now) {
			a.OverdueTasks++
		}
		a.PriorityDistribution[task.Priority.Name()]++
	}
	if a.TotalTasks > 0 {
		a.CompletionRate = float64(a.CompletedTasks) / float64(a.TotalTasks) * 100
	}

	for _, user := range s.Users() {
		w := UserWorkload{Name: user.Name, MaxConcurrent: user.MaxConcurrent}
		for _, task := range tasks {
			if task.AssignedTo != user.ID {
				continue
			}
			w.TotalTasks++
			switch task.Status {
			case StatusPending, StatusInProgress:
				w.ActiveTasks++
			case StatusCompleted:
				w.CompletedTasks++
			}
		}
		a.UserWorkloads[user.ID] = w
	}

	return a
}

var statusIcons = map[Status]string{
	StatusCompleted:  "✅",
	StatusInProgress: "🔄",
	StatusPending:    "⏳",
	StatusBlocked:    "🚫",
}

// DependencyGraph renders the task dependency graph as indented text, one
// line per task with its status icon, and a sub-line per dependency.
// Dependencies on unknown tasks are flagged as not found.
func (s *Store) DependencyGraph() string {
	s.mu.RLock()
	titles := make(map[string]string, len(s.tasks))
	statuses := make(map[string]Status, len(s.tasks))
	for id, task := range s.tasks {
		titles[id] = task.Title
		statuses[id] = task.Status
	}
	s.mu.RUnlock()

	lines := []string{"Task Dependency Graph:"}
	for _, task := range s.List() {
		icon, ok := statusIcons[task.Status]
		if !ok {
			icon = "❓"
		}
		lines = append(lines, fmt.Sprintf("  %s %s (%s)", icon, task.Title, task.ID))

		for _, depID := range task.Dependencies {
			if title, ok := titles[depID]; ok {
				depIcon := "⏳"
				if statuses[depID] == StatusCompleted {
					depIcon = "✅"
				}
				lines = append(lines, fmt.Sprintf("    ↳ depends on: %s %s", depIcon, title))
			} else {
				lines = append(lines, fmt.Sprintf("    ↳ depends on: ❌ %s (not found)", depID))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// UnsatisfiedDependencies returns, per task, the dependencies that are
// missing or not yet completed. Tasks with none are omitted.
func (s *Store) UnsatisfiedDependencies() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unsatisfied := make(map[string][]string)
	for id, task := range s.tasks {
		for _, depID := range task.Dependencies {
			dep, ok := s.tasks[depID]
			if !ok || dep.Status != StatusCompleted {
				unsatisfied[id] = append(unsatisfied[id], depID)
			}
		}
	}
	return unsatisfied
}
