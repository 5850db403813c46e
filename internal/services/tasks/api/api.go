// Package api defines the wire contract of the tasks service.
package api

import "time"

// Request topics owned by the tasks service.
const (
	TopicAssignNewTask    = "tasks.assign-new-task"
	TopicGetAllTasks      = "tasks.get-all-tasks"
	TopicGetTaskByID      = "tasks.get-task-by-id"
	TopicGetMyTasks       = "tasks.get-my-tasks"
	TopicGetPendingTasks  = "tasks.get-pending-tasks"
	TopicUpdateTaskStatus = "tasks.update-task-status"
	TopicDeleteTask       = "tasks.delete-task"
)

// Task statuses.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// AssigneeRef is the denormalized assignee projection embedded in a task.
type AssigneeRef struct {
	ID       string `cbor:"id" json:"id"`
	Username string `cbor:"username" json:"username"`
}

// Task is one unit of work assigned to an employee.
type Task struct {
	ID          string      `cbor:"id" json:"id"`
	Name        string      `cbor:"name" json:"name"`
	Description string      `cbor:"description" json:"description"`
	Status      string      `cbor:"status" json:"status"`
	DueDate     *time.Time  `cbor:"dueDate,omitempty" json:"dueDate,omitempty"`
	Assignee    AssigneeRef `cbor:"assignee" json:"assignee"`
	AssignedBy  string      `cbor:"assignedBy" json:"assignedBy"`
	CreatedAt   time.Time   `cbor:"createdAt" json:"createdAt"`
}

// AssignTaskRequest creates a task for a chosen assignee.
type AssignTaskRequest struct {
	Name        string     `cbor:"name" json:"name"`
	Description string     `cbor:"description" json:"description"`
	DueDate     *time.Time `cbor:"dueDate,omitempty" json:"dueDate,omitempty"`
	AssigneeID  string     `cbor:"assigneeId" json:"assigneeId"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// MyTasksRequest lists tasks assigned to one employee.
type MyTasksRequest struct {
	AssigneeID string `cbor:"assigneeId" json:"assigneeId"`
}

// UpdateStatusRequest moves a task to a new status. Only the task's own
// assignee may update it.
type UpdateStatusRequest struct {
	TaskID string `cbor:"taskId" json:"taskId"`
	Status string `cbor:"status" json:"status"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// TaskPage is one page of task records.
type TaskPage struct {
	Total int    `cbor:"total" json:"total"`
	Page  int    `cbor:"page" json:"page"`
	Limit int    `cbor:"limit" json:"limit"`
	Tasks []Task `cbor:"tasks" json:"tasks"`
}
