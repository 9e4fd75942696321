package tasks

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedData(t *testing.T) {
	store := NewStore()

	tasks := store.List()
	require.Len(t, tasks, 3)
	assert.Equal(t, "task-002", tasks[0].ID) // oldest first
	assert.Equal(t, "task-001", tasks[1].ID)
	assert.Equal(t, "task-003", tasks[2].ID)

	auth, ok := store.Get("task-001")
	require.True(t, ok)
	assert.Equal(t, "Implement user authentication system", auth.Title)
	assert.Equal(t, StatusInProgress, auth.Status)
	assert.Equal(t, PriorityHigh, auth.Priority)
	assert.Equal(t, "alice", auth.AssignedTo)
	assert.Equal(t, []string{"backend", "security", "authentication"}, auth.Tags)

	users := store.Users()
	require.Len(t, users, 3)
	assert.Equal(t, "Alice Johnson", users[0].Name)
	assert.Equal(t, 2, users[1].MaxConcurrent)
	assert.Equal(t, "Project Manager", users[2].Role)
}

func TestCreateTask(t *testing.T) {
	store := NewStore()

	task, err := store.Create(CreateTaskInput{
		Title:       "Write unit tests",
		Description: "Add comprehensive unit tests for the authentication module",
		Priority:    PriorityHigh,
		Tags:        []string{"testing", "backend"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(task.ID, "task-"))
	assert.Len(t, task.ID, len("task-")+8)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)

	stored, ok := store.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Write unit tests", stored.Title)
}

func TestCreateTaskDefaultsToMediumPriority(t *testing.T) {
	store := NewStore()

	task, err := store.Create(CreateTaskInput{Title: "Untriaged work"})
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, task.Priority)
}

func TestCreateTaskValidation(t *testing.T) {
	store := NewStore()

	_, err := store.Create(CreateTaskInput{Title: "   "})
	assert.ErrorContains(t, err, "title is required")

	_, err = store.Create(CreateTaskInput{Title: "ok", Priority: 9})
	assert.ErrorContains(t, err, "invalid priority")

	_, err = store.Create(CreateTaskInput{Title: "ok", AssignedTo: "mallory"})
	assert.ErrorContains(t, err, `unknown user "mallory"`)
}

func TestUpdateStatus(t *testing.T) {
	store := NewStore()

	old, err := store.UpdateStatus("task-003", StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, old)

	task, _ := store.Get("task-003")
	assert.Equal(t, StatusInProgress, task.Status)

	_, err = store.UpdateStatus("task-999", StatusCompleted)
	assert.ErrorContains(t, err, "not found")

	_, err = store.UpdateStatus("task-001", Status("done"))
	assert.ErrorContains(t, err, "invalid status")
}

func TestAssignTask(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Assign("task-003", "carol"))
	task, _ := store.Get("task-003")
	assert.Equal(t, "carol", task.AssignedTo)

	require.NoError(t, store.Assign("task-003", ""))
	task, _ = store.Get("task-003")
	assert.Empty(t, task.AssignedTo)

	assert.ErrorContains(t, store.Assign("task-003", "mallory"), "unknown user")
	assert.ErrorContains(t, store.Assign("task-999", "alice"), "not found")
}

func TestAssignTaskEnforcesCapacity(t *testing.T) {
	store := NewStore()

	// bob has max 2 concurrent tasks and one active seed task is not his,
	// so fill him up with fresh pending work first.
	for i := 0; i < 2; i++ {
		_, err := store.Create(CreateTaskInput{Title: "Design review", AssignedTo: "bob"})
		require.NoError(t, err)
	}

	err := store.Assign("task-003", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bob Smith is at capacity")
	assert.Contains(t, err.Error(), "max 2")
}

func TestSearch(t *testing.T) {
	store := NewStore()

	byText := store.Search(SearchFilter{Query: "authentication"})
	require.Len(t, byText, 1)
	assert.Equal(t, "task-001", byText[0].ID)

	byStatus := store.Search(SearchFilter{Status: StatusCompleted})
	require.Len(t, byStatus, 1)
	assert.Equal(t, "task-002", byStatus[0].ID)

	byTag := store.Search(SearchFilter{Tag: "devops"})
	require.Len(t, byTag, 1)
	assert.Equal(t, "task-003", byTag[0].ID)

	assert.Empty(t, store.Search(SearchFilter{Query: "authentication", Status: StatusCompleted}))
	assert.Len(t, store.Search(SearchFilter{}), 3)
}

func TestOverdue(t *testing.T) {
	store := NewStore()

	overdue := store.Overdue()
	require.Empty(t, overdue) // task-002 is past due but completed

	_, err := store.UpdateStatus("task-002", StatusInProgress)
	require.NoError(t, err)

	overdue = store.Overdue()
	require.Len(t, overdue, 1)
	assert.Equal(t, "task-002", overdue[0].ID)
}

func TestChangeListener(t *testing.T) {
	store := NewStore()

	var changed []string
	store.SetChangeListener(func(uri string) { changed = append(changed, uri) })

	_, err := store.Create(CreateTaskInput{Title: "Notify me"})
	require.NoError(t, err)
	assert.Equal(t, []string{URIAll, URISummary, URIWorkloads}, changed)

	changed = nil
	_, err = store.UpdateStatus("task-001", StatusCompleted)
	require.NoError(t, err)
	assert.Contains(t, changed, URIOverdue)

	changed = nil
	require.NoError(t, store.Assign("task-003", "carol"))
	assert.Equal(t, []string{URIAll, URIWorkloads}, changed)
}

func TestGetReturnsCopies(t *testing.T) {
	store := NewStore()

	task, ok := store.Get("task-001")
	require.True(t, ok)
	task.Tags[0] = "mutated"
	task.Status = StatusBlocked

	again, _ := store.Get("task-001")
	assert.Equal(t, "backend", again.Tags[0])
	assert.Equal(t, StatusInProgress, again.Status)
}

func TestTaskIDsAreUnique(t *testing.T) {
	store := NewEmptyStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		task, err := store.Create(CreateTaskInput{Title: "Bulk task"})
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "duplicate ID %s", task.ID)
		seen[task.ID] = true
	}
}

func TestOverdueHelper(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Task{Status: StatusPending, DueDate: &past}.Overdue(now))
	assert.False(t, Task{Status: StatusCompleted, DueDate: &past}.Overdue(now))
	assert.False(t, Task{Status: StatusPending, DueDate: &future}.Overdue(now))
	assert.False(t, Task{Status: StatusPending}.Overdue(now))
}
