package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mcplabs/foundations/pkg/protocol"
	"github.com/mcplabs/foundations/pkg/server"
	"github.com/mcplabs/foundations/pkg/utils"
)

// NewToolsProvider returns a tools provider exposing the task management
// tools backed by the given store.
func NewToolsProvider(store *Store) *server.BaseToolsProvider {
	p := server.NewBaseToolsProvider()

	p.RegisterTool(protocol.Tool{
		Name:        "create_task",
		Description: "Create a new task",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"title":        utils.StringProperty("Task title"),
			"description":  utils.StringProperty("Task description"),
			"priority":     utils.IntegerProperty("Priority from 1 (low) to 4 (urgent)").WithDefault(2),
			"assigned_to":  utils.StringProperty("User ID to assign the task to"),
			"due_date":     utils.StringProperty("Due date in RFC 3339 format"),
			"tags":         utils.Property{"type": "array", "items": map[string]string{"type": "string"}, "description": "Task tags"},
			"dependencies": utils.Property{"type": "array", "items": map[string]string{"type": "string"}, "description": "IDs of tasks this task depends on"},
		}, "title"),
		Categories: []string{"tasks"},
	}, createTaskHandler(store))

	p.RegisterTool(protocol.Tool{
		Name:        "list_tasks",
		Description: "List all tasks, optionally filtered by status",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"status": utils.EnumProperty("Filter by status", "pending", "in_progress", "completed", "blocked"),
		}),
		Categories: []string{"tasks"},
	}, listTasksHandler(store))

	p.RegisterTool(protocol.Tool{
		Name:        "update_status",
		Description: "Update the status of a task",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"task_id": utils.StringProperty("ID of the task"),
			"status":  utils.EnumProperty("New status", "pending", "in_progress", "completed", "blocked"),
		}, "task_id", "status"),
		Categories: []string{"tasks"},
	}, updateStatusHandler(store))

	p.RegisterTool(protocol.Tool{
		Name:        "assign_task",
		Description: "Assign a task to a user, or unassign it",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"task_id": utils.StringProperty("ID of the task"),
			"user_id": utils.StringProperty("User ID to assign to; empty to unassign"),
		}, "task_id"),
		Categories: []string{"tasks"},
	}, assignTaskHandler(store))

	p.RegisterTool(protocol.Tool{
		Name:        "search_tasks",
		Description: "Search tasks by text, status or tag",
		InputSchema: utils.ObjectSchema(map[string]utils.Property{
			"query":  utils.StringProperty("Text to match against title and description"),
			"status": utils.EnumProperty("Filter by status", "pending", "in_progress", "completed", "blocked"),
			"tag":    utils.StringProperty("Filter by tag"),
		}),
		Categories: []string{"tasks"},
	}, searchTasksHandler(store))

	return p
}

type createTaskArgs struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     int      `json:"priority"`
	AssignedTo   string   `json:"assigned_to"`
	DueDate      string   `json:"due_date"`
	Tags         []string `json:"tags"`
	Dependencies []string `json:"dependencies"`
}

func createTaskHandler(store *Store) server.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
		var params createTaskArgs
		if err := utils.JSONToStruct(args, &params); err != nil {
			return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		input := CreateTaskInput{
			Title:        params.Title,
			Description:  params.Description,
			Priority:     Priority(params.Priority),
			AssignedTo:   params.AssignedTo,
			Tags:         params.Tags,
			Dependencies: params.Dependencies,
		}
		if params.DueDate != "" {
			due, err := time.Parse(time.RFC3339, params.DueDate)
			if err != nil {
				return protocol.NewToolError(fmt.Sprintf("Invalid due_date: %v", err)), nil
			}
			input.DueDate = &due
		}

		task, err := store.Create(input)
		if err != nil {
			return protocol.NewToolError(err.Error()), nil
		}
		return protocol.NewToolResult(map[string]interface{}{
			"success": true,
			"task_id": task.ID,
			"message": fmt.Sprintf("Task '%s' created successfully", task.Title),
		})
	}
}

func listTasksHandler(store *Store) server.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
		var params struct {
			Status string `json:"status"`
		}
		if err := utils.JSONToStruct(args, &params); err != nil {
			return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		var tasks []Task
		if params.Status != "" {
			if !Status(params.Status).Valid() {
				return protocol.NewToolError(fmt.Sprintf("invalid status %q: must be one of pending, in_progress, completed, blocked", params.Status)), nil
			}
			tasks = store.Search(SearchFilter{Status: Status(params.Status)})
		} else {
			tasks = store.List()
		}

		return protocol.NewToolResult(map[string]interface{}{
			"tasks": tasks,
			"total": len(tasks),
		})
	}
}

func updateStatusHandler(store *Store) server.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
		var params struct {
			TaskID string `json:"task_id"`
			Status string `json:"status"`
		}
		if err := utils.JSONToStruct(args, &params); err != nil {
			return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if params.TaskID == "" || params.Status == "" {
			return protocol.NewToolError("Missing required parameters: task_id, status"), nil
		}

		old, err := store.UpdateStatus(params.TaskID, Status(params.Status))
		if err != nil {
			return protocol.NewToolError(err.Error()), nil
		}
		return protocol.NewToolResult(map[string]interface{}{
			"success":    true,
			"task_id":    params.TaskID,
			"old_status": old,
			"new_status": params.Status,
		})
	}
}

func assignTaskHandler(store *Store) server.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
		var params struct {
			TaskID string `json:"task_id"`
			UserID string `json:"user_id"`
		}
		if err := utils.JSONToStruct(args, &params); err != nil {
			return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if params.TaskID == "" {
			return protocol.NewToolError("Missing required parameter: task_id"), nil
		}

		if err := store.Assign(params.TaskID, params.UserID); err != nil {
			return protocol.NewToolError(err.Error()), nil
		}

		message := fmt.Sprintf("Task %s unassigned", params.TaskID)
		if params.UserID != "" {
			message = fmt.Sprintf("Task %s assigned to %s", params.TaskID, params.UserID)
		}
		return protocol.NewToolResult(map[string]interface{}{
			"success":     true,
			"task_id":     params.TaskID,
			"assigned_to": params.UserID,
			"message":     message,
		})
	}
}

func searchTasksHandler(store *Store) server.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error) {
		var params struct {
			Query  string `json:"query"`
			Status string `json:"status"`
			Tag    string `json:"tag"`
		}
		if err := utils.JSONToStruct(args, &params); err != nil {
			return protocol.NewToolError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if params.Status != "" && !Status(params.Status).Valid() {
			return protocol.NewToolError(fmt.Sprintf("invalid status %q: must be one of pending, in_progress, completed, blocked", params.Status)), nil
		}

		tasks := store.Search(SearchFilter{
			Query:  params.Query,
			Status: Status(params.Status),
			Tag:    params.Tag,
		})
		return protocol.NewToolResult(map[string]interface{}{
			"tasks": tasks,
			"total": len(tasks),
		})
	}
}

// NewResourcesProvider returns a resources provider serving the tasks://
// resource set backed by the given store.
func NewResourcesProvider(store *Store) *server.BaseResourcesProvider {
	p := server.NewBaseResourcesProvider()

	register := func(uri, name, description string, value func() interface{}) {
		p.RegisterResource(protocol.Resource{
			URI:         uri,
			Name:        name,
			Description: description,
			MimeType:    "application/json",
		}, func(ctx context.Context) ([]protocol.ResourceContents, error) {
			data, err := json.MarshalIndent(value(), "", "  ")
			if err != nil {
				return nil, err
			}
			return []protocol.ResourceContents{{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(data),
			}}, nil
		})
	}

	register(URIAll, "All Tasks", "Complete list of all tasks keyed by ID", func() interface{} {
		all := make(map[string]Task)
		for _, task := range store.List() {
			all[task.ID] = task
		}
		return all
	})

	register(URISummary, "Task Summary", "Summary statistics about tasks", func() interface{} {
		var completed, inProgress, pending, blocked int
		tasks := store.List()
		for _, task := range tasks {
			switch task.Status {
			case StatusCompleted:
				completed++
			case StatusInProgress:
				inProgress++
			case StatusPending:
				pending++
			case StatusBlocked:
				blocked++
			}
		}
		rate := "0%"
		if len(tasks) > 0 {
			rate = fmt.Sprintf("%.1f%%", float64(completed)/float64(len(tasks))*100)
		}
		return map[string]interface{}{
			"total_tasks":     len(tasks),
			"completed":       completed,
			"in_progress":     inProgress,
			"pending":         pending,
			"blocked":         blocked,
			"completion_rate": rate,
		}
	})

	register(URIOverdue, "Overdue Tasks", "Incomplete tasks past their due date", func() interface{} {
		overdue := store.Overdue()
		return map[string]interface{}{
			"tasks": overdue,
			"total": len(overdue),
		}
	})

	register(URIWorkloads, "User Workloads", "Per-user active and completed task counts", func() interface{} {
		return map[string]interface{}{
			"user_workloads": store.Analytics().UserWorkloads,
		}
	})

	return p
}

// NewPromptsProvider returns a prompts provider with the task reporting
// templates backed by the given store.
func NewPromptsProvider(store *Store) *server.BasePromptsProvider {
	p := server.NewBasePromptsProvider()

	p.RegisterPrompt(protocol.Prompt{
		Name:        "task_report",
		Description: "Generate a task status report",
		Tags:        []string{"reporting"},
	}, taskReportRenderer(store))

	p.RegisterPrompt(protocol.Prompt{
		Name:        "task_summary",
		Description: "Summarize a specific task",
		Arguments: []protocol.PromptArgument{
			{Name: "task_id", Description: "ID of the task", Required: true},
		},
		Tags: []string{"reporting"},
	}, taskSummaryRenderer(store))

	p.RegisterPrompt(protocol.Prompt{
		Name:        "task_analysis",
		Description: "Analyze a task in depth with risks and next steps",
		Arguments: []protocol.PromptArgument{
			{Name: "task_id", Description: "ID of the task", Required: true},
		},
		Tags: []string{"analysis"},
	}, taskAnalysisRenderer(store))

	return p
}

func taskReportRenderer(store *Store) server.PromptRenderer {
	return func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
		tasks := store.List()
		completed := 0
		for _, task := range tasks {
			if task.Status == StatusCompleted {
				completed++
			}
		}
		rate := 0.0
		if len(tasks) > 0 {
			rate = float64(completed) / float64(len(tasks)) * 100
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Generate a comprehensive task status report based on the following data:\n\n")
		fmt.Fprintf(&b, "Total Tasks: %d\n", len(tasks))
		fmt.Fprintf(&b, "Completed Tasks: %d\n", completed)
		fmt.Fprintf(&b, "Completion Rate: %.1f%%\n\n", rate)
		b.WriteString("Recent Tasks:\n")
		recent := tasks
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		for _, task := range recent {
			fmt.Fprintf(&b, "- %s (%s)\n", task.Title, task.Status)
		}
		b.WriteString("\nPlease provide insights and recommendations based on this data.")

		return &protocol.GetPromptResult{
			Description: "Task status report",
			Messages:    []protocol.PromptMessage{protocol.NewTextPromptMessage("user", b.String())},
		}, nil
	}
}

func taskSummaryRenderer(store *Store) server.PromptRenderer {
	return func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
		task, ok := store.Get(args["task_id"])
		if !ok {
			return nil, fmt.Errorf("task %q not found", args["task_id"])
		}

		assignee := task.AssignedTo
		if assignee == "" {
			assignee = "Unassigned"
		}

		var b strings.Builder
		b.WriteString("Provide a detailed summary of the following task:\n\n")
		fmt.Fprintf(&b, "Title: %s\n", task.Title)
		fmt.Fprintf(&b, "Description: %s\n", task.Description)
		fmt.Fprintf(&b, "Status: %s\n", task.Status)
		fmt.Fprintf(&b, "Assigned to: %s\n", assignee)
		fmt.Fprintf(&b, "Created: %s\n\n", task.CreatedAt.Format("2006-01-02 15:04"))
		b.WriteString("Please analyze the task status and provide recommendations for next steps.")

		return &protocol.GetPromptResult{
			Description: fmt.Sprintf("Summary of task %s", task.ID),
			Messages:    []protocol.PromptMessage{protocol.NewTextPromptMessage("user", b.String())},
		}, nil
	}
}

func taskAnalysisRenderer(store *Store) server.PromptRenderer {
	return func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error) {
		task, ok := store.Get(args["task_id"])
		if !ok {
			return nil, fmt.Errorf("task %q not found", args["task_id"])
		}

		assignee := task.AssignedTo
		if assignee == "" {
			assignee = "Unassigned"
		}
		due := "Not set"
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02 15:04")
		}
		tags := "None"
		if len(task.Tags) > 0 {
			tags = strings.Join(task.Tags, ", ")
		}

		var b strings.Builder
		b.WriteString("Analyze the following task and provide insights:\n\n")
		b.WriteString("Task Details:\n")
		fmt.Fprintf(&b, "- ID: %s\n", task.ID)
		fmt.Fprintf(&b, "- Title: %s\n", task.Title)
		fmt.Fprintf(&b, "- Description: %s\n", task.Description)
		fmt.Fprintf(&b, "- Status: %s\n", task.Status)
		fmt.Fprintf(&b, "- Priority: %s (%d/4)\n", task.Priority.Name(), task.Priority)
		fmt.Fprintf(&b, "- Assigned to: %s\n", assignee)
		fmt.Fprintf(&b, "- Created: %s\n", task.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "- Due date: %s\n", due)
		fmt.Fprintf(&b, "- Tags: %s\n\n", tags)
		b.WriteString("Please provide:\n")
		b.WriteString("1. Current status assessment\n")
		b.WriteString("2. Risk factors and blockers\n")
		b.WriteString("3. Recommendations for next steps\n")

		return &protocol.GetPromptResult{
			Description: fmt.Sprintf("Analysis of task %s", task.ID),
			Messages:    []protocol.PromptMessage{protocol.NewTextPromptMessage("user", b.String())},
		}, nil
	}
}
