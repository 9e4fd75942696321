package tasks

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Resource URIs served by the tasks domain. Mutations report the URIs they
// affect through the store's change listener.
const (
	URIAll       = "tasks://all"
	URISummary   = "tasks://summary"
	URIOverdue   = "tasks://overdue"
	URIWorkloads = "tasks://workloads"
)

// ChangeListener receives the URI of a resource whose content changed.
type ChangeListener func(uri string)

// Store is a thread-safe in-memory task database.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	users    map[string]User
	listener ChangeListener

	// Stubbed in tests for deterministic output.
	now   func() time.Time
	newID func() string
}

// NewStore creates a store seeded with the demo team and sample tasks.
func NewStore() *Store {
	s := NewEmptyStore()
	s.seed()
	return s
}

// NewEmptyStore creates a store with the demo team but no tasks.
func NewEmptyStore() *Store {
	s := &Store{
		tasks: make(map[string]*Task),
		users: make(map[string]User),
		now:   time.Now,
		newID: func() string { return "task-" + uuid.NewString()[:8] },
	}
	for _, u := range []User{
		{ID: "alice", Name: "Alice Johnson", Role: "Senior Developer",
			Skills: []string{"python", "javascript", "architecture"}, MaxConcurrent: 3},
		{ID: "bob", Name: "Bob Smith", Role: "UI/UX Designer",
			Skills: []string{"design", "prototyping", "user-research"}, MaxConcurrent: 2},
		{ID: "carol", Name: "Carol Davis", Role: "Project Manager",
			Skills: []string{"planning", "coordination", "stakeholder-management"}, MaxConcurrent: 5},
	} {
		s.users[u.ID] = u
	}
	return s
}

func (s *Store) seed() {
	now := s.now()
	due1 := now.Add(5 * 24 * time.Hour)
	due2 := now.Add(-24 * time.Hour)
	due3 := now.Add(7 * 24 * time.Hour)

	for _, t := range []*Task{
		{
			ID:          "task-001",
			Title:       "Implement user authentication system",
			Description: "Design and implement a secure user authentication system with JWT tokens",
			Status:      StatusInProgress,
			Priority:    PriorityHigh,
			CreatedAt:   now.Add(-3 * 24 * time.Hour),
			UpdatedAt:   now.Add(-2 * time.Hour),
			AssignedTo:  "alice",
			DueDate:     &due1,
			Tags:        []string{"backend", "security", "authentication"},
		},
		{
			ID:          "task-002",
			Title:       "Design user onboarding flow",
			Description: "Create wireframes and prototypes for new user onboarding experience",
			Status:      StatusCompleted,
			Priority:    PriorityMedium,
			CreatedAt:   now.Add(-7 * 24 * time.Hour),
			UpdatedAt:   now.Add(-24 * time.Hour),
			AssignedTo:  "bob",
			DueDate:     &due2,
			Tags:        []string{"frontend", "ux", "onboarding"},
		},
		{
			ID:           "task-003",
			Title:        "Set up CI/CD pipeline",
			Description:  "Configure automated testing and deployment pipeline",
			Status:       StatusPending,
			Priority:     PriorityHigh,
			CreatedAt:    now.Add(-2 * 24 * time.Hour),
			UpdatedAt:    now.Add(-2 * 24 * time.Hour),
			DueDate:      &due3,
			Tags:         []string{"devops", "automation", "infrastructure"},
			Dependencies: []string{"task-001"},
		},
	} {
		s.tasks[t.ID] = t
	}
}

// SetChangeListener registers the callback invoked after each mutation,
// once per affected resource URI. It is called outside the store's lock.
func (s *Store) SetChangeListener(fn ChangeListener) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

func (s *Store) notify(uris ...string) {
	s.mu.RLock()
	fn := s.listener
	s.mu.RUnlock()
	if fn == nil {
		return
	}
	for _, uri := range uris {
		fn(uri)
	}
}

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Title        string
	Description  string
	Priority     Priority // zero value means medium
	AssignedTo   string
	DueDate      *time.Time
	Tags         []string
	Dependencies []string
}

// Create adds a new pending task and returns it.
func (s *Store) Create(input CreateTaskInput) (Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return Task{}, fmt.Errorf("task title is required")
	}
	if input.Priority == 0 {
		input.Priority = PriorityMedium
	}
	if !input.Priority.Valid() {
		return Task{}, fmt.Errorf("invalid priority %d: must be between 1 (low) and 4 (urgent)", input.Priority)
	}

	s.mu.Lock()
	if input.AssignedTo != "" {
		if _, ok := s.users[input.AssignedTo]; !ok {
			s.mu.Unlock()
			return Task{}, fmt.Errorf("unknown user %q", input.AssignedTo)
		}
	}

	now := s.now()
	task := &Task{
		ID:           s.newID(),
		Title:        input.Title,
		Description:  input.Description,
		Status:       StatusPending,
		Priority:     input.Priority,
		CreatedAt:    now,
		UpdatedAt:    now,
		AssignedTo:   input.AssignedTo,
		DueDate:      input.DueDate,
		Tags:         append([]string(nil), input.Tags...),
		Dependencies: append([]string(nil), input.Dependencies...),
	}
	s.tasks[task.ID] = task
	created := task.clone()
	s.mu.Unlock()

	s.notify(URIAll, URISummary, URIWorkloads)
	return created, nil
}

// Get returns a copy of the task with the given ID.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return task.clone(), true
}

// List returns all tasks ordered by creation time, oldest first. Ties are
// broken by ID so the order is stable.
func (s *Store) List() []Task {
	s.mu.RLock()
	tasks := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.clone())
	}
	s.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// UpdateStatus transitions a task to the given status and returns the
// previous one.
func (s *Store) UpdateStatus(id string, status Status) (Status, error) {
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of pending, in_progress, completed, blocked", status)
	}

	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("task %q not found", id)
	}
	old := task.Status
	task.Status = status
	task.UpdatedAt = s.now()
	s.mu.Unlock()

	s.notify(URIAll, URISummary, URIOverdue, URIWorkloads)
	return old, nil
}

// Assign assigns a task to a user, enforcing the user's concurrent-task
// capacity. An empty user ID unassigns the task.
func (s *Store) Assign(id, userID string) error {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %q not found", id)
	}

	if userID != "" {
		user, ok := s.users[userID]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("unknown user %q", userID)
		}

		active := 0
		for _, t := range s.tasks {
			if t.AssignedTo == userID && t.ID != id &&
				(t.Status == StatusPending || t.Status == StatusInProgress) {
				active++
			}
		}
		if active >= user.MaxConcurrent {
			s.mu.Unlock()
			return fmt.Errorf("%s is at capacity (%d active tasks, max %d)",
				user.Name, active, user.MaxConcurrent)
		}
	}

	task.AssignedTo = userID
	task.UpdatedAt = s.now()
	s.mu.Unlock()

	s.notify(URIAll, URIWorkloads)
	return nil
}

// SearchFilter narrows Search results. Zero-value fields match everything.
type SearchFilter struct {
	Query  string // case-insensitive substring of title or description
	Status Status
	Tag    string
}

// Search returns tasks matching the filter, in List order.
func (s *Store) Search(filter SearchFilter) []Task {
	query := strings.ToLower(filter.Query)

	var matched []Task
	for _, task := range s.List() {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !containsString(task.Tags, filter.Tag) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(task.Title), query) &&
			!strings.Contains(strings.ToLower(task.Description), query) {
			continue
		}
		matched = append(matched, task)
	}
	return matched
}

// Overdue returns incomplete tasks past their due date.
func (s *Store) Overdue() []Task {
	now := s.now()
	var overdue []Task
	for _, task := range s.List() {
		if task.Overdue(now) {
			overdue = append(overdue, task)
		}
	}
	return overdue
}

// Users returns the team ordered by user ID.
func (s *Store) Users() []User {
	s.mu.RLock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// User looks up a team member by ID.
func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
