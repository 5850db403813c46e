// Package app implements the tasks service handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/platform/id"
	"github.com/casebooklabs/casebook/internal/platform/timeouts"
	"github.com/casebooklabs/casebook/internal/saga"
	notifapi "github.com/casebooklabs/casebook/internal/services/notifications/api"
	"github.com/casebooklabs/casebook/internal/services/tasks/api"
	"github.com/casebooklabs/casebook/internal/services/tasks/storage"
	usersapi "github.com/casebooklabs/casebook/internal/services/users/api"
)

var validStatuses = map[string]bool{
	api.StatusPending:    true,
	api.StatusInProgress: true,
	api.StatusCompleted:  true,
}

// Service handles tasks topics over a shared store.
type Service struct {
	store storage.Store
	conn  bus.Conn

	now   func() time.Time
	newID func() string
}

// New creates a tasks service over the given store.
func New(store storage.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{store: store, now: time.Now, newID: id.New}, nil
}

// Register subscribes every tasks topic on the connection.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	s.conn = conn

	subscriptions := map[string]bus.Handler{
		api.TopicAssignNewTask:    bus.Allow(s.handleAssignNewTask, claims.RoleAdmin),
		api.TopicGetAllTasks:      bus.Allow(s.handleGetAllTasks, claims.RoleAdmin),
		api.TopicGetTaskByID:      bus.Allow(s.handleGetTaskByID, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicGetMyTasks:       bus.Allow(s.handleGetMyTasks, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicGetPendingTasks:  bus.Allow(s.handleGetPendingTasks, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicUpdateTaskStatus: bus.Allow(s.handleUpdateTaskStatus, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicDeleteTask:       bus.Allow(s.handleDeleteTask, claims.RoleAdmin),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func taskErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeTaskNotFound, "Task not found")
	}
	if errors.Is(err, storage.ErrConflict) {
		return cberrors.New(cberrors.CodeTaskNameExists, "Task name already exists for this assignee")
	}
	return err
}

func toAPITask(t storage.Task) api.Task {
	return api.Task{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Assignee:    api.AssigneeRef{ID: t.AssigneeID, Username: t.AssigneeUsername},
		AssignedBy:  t.AssignedBy,
		CreatedAt:   t.CreatedAt,
	}
}

func (s *Service) handleAssignNewTask(ctx context.Context, req *bus.Request) (any, error) {
	var in api.AssignTaskRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed assign task request", err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "task name is required")
	}
	if strings.TrimSpace(in.AssigneeID) == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "assignee id is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, timeouts.BusRequest)
	defer cancel()
	var assignee usersapi.EmployeeSummary
	if err := s.conn.Request(callCtx, usersapi.TopicGetEmployeeByID, usersapi.GetByIDRequest{ID: in.AssigneeID}, &assignee); err != nil {
		return nil, err
	}

	sagaLog := &saga.Log{}
	task := storage.Task{
		ID:               s.newID(),
		Name:             in.Name,
		Description:      in.Description,
		Status:           api.StatusPending,
		DueDate:          in.DueDate,
		AssigneeID:       assignee.ID,
		AssigneeUsername: assignee.Username,
		AssignedBy:       req.Claims.Username,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, taskErr(err)
	}
	sagaLog.Append("delete task "+task.ID, func(undoCtx context.Context) error {
		return s.store.DeleteTask(undoCtx, task.ID)
	})

	stored, err := s.store.GetTask(ctx, task.ID)
	if err != nil {
		_ = sagaLog.Compensate(ctx)
		return nil, taskErr(err)
	}
	sagaLog.Discard()

	s.conn.Publish(notifapi.TopicTaskAssigned, notifapi.TaskAssigned{
		To:         assignee.Email,
		AssignedBy: req.Claims.Username,
		TaskName:   stored.Name,
	})
	return toAPITask(stored), nil
}

func (s *Service) handleGetAllTasks(ctx context.Context, req *bus.Request) (any, error) {
	var in api.ListRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed list request", err)
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}

	page, err := s.store.ListTasks(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	out := api.TaskPage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, t := range page.Tasks {
		out.Tasks = append(out.Tasks, toAPITask(t))
	}
	return out, nil
}

func (s *Service) handleGetTaskByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	task, err := s.store.GetTask(ctx, in.ID)
	if err != nil {
		return nil, taskErr(err)
	}
	return toAPITask(task), nil
}

func (s *Service) handleGetMyTasks(ctx context.Context, req *bus.Request) (any, error) {
	tasks, err := s.store.ListTasksForAssignee(ctx, req.Claims.SubjectID)
	if err != nil {
		return nil, err
	}
	out := make([]api.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toAPITask(t))
	}
	return out, nil
}

func (s *Service) handleGetPendingTasks(ctx context.Context, req *bus.Request) (any, error) {
	tasks, err := s.store.ListTasksForAssignee(ctx, req.Claims.SubjectID)
	if err != nil {
		return nil, err
	}
	out := make([]api.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == api.StatusCompleted {
			continue
		}
		out = append(out, toAPITask(t))
	}
	return out, nil
}

func (s *Service) handleUpdateTaskStatus(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateStatusRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}
	if !validStatuses[in.Status] {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "unknown task status")
	}

	task, err := s.store.GetTask(ctx, in.TaskID)
	if err != nil {
		return nil, taskErr(err)
	}
	// Only the assignee moves their own task; admins may move any.
	if req.Claims.Role != claims.RoleAdmin && task.AssigneeID != req.Claims.SubjectID {
		return nil, cberrors.New(cberrors.CodeForbidden, "Forbidden resource")
	}

	task.Status = in.Status
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, taskErr(err)
	}
	return toAPITask(task), nil
}

func (s *Service) handleDeleteTask(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed delete request", err)
	}
	if err := s.store.DeleteTask(ctx, in.ID); err != nil {
		return nil, taskErr(err)
	}
	return struct{}{}, nil
}
