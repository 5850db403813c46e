// Package app implements the notifications sink.
//
// Every topic is consumed fire-and-forget: handlers persist a delivery
// record, hand the message to the mailer, and never surface errors to the
// publishing service.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/platform/id"
	"github.com/casebooklabs/casebook/internal/services/notifications/api"
	"github.com/casebooklabs/casebook/internal/services/notifications/mailer"
	"github.com/casebooklabs/casebook/internal/services/notifications/storage"
)

// Service handles notification topics over a shared store and mailer.
type Service struct {
	store storage.Store
	mail  mailer.Mailer
	now   func() time.Time
	newID func() string
}

// New creates a notifications service over the given store and mailer.
func New(store storage.Store, mail mailer.Mailer) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	return &Service{
		store: store,
		mail:  mail,
		now:   time.Now,
		newID: id.New,
	}, nil
}

// Register subscribes every notification topic on the connection.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}

	subscriptions := map[string]bus.Handler{
		api.TopicCaseAssigned:   bus.Internal(s.handleCaseAssigned),
		api.TopicTaskAssigned:   bus.Internal(s.handleTaskAssigned),
		api.TopicPasswordIssued: bus.Internal(s.handlePasswordIssued),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// deliver records and sends one message. Failures are logged and stored,
// never returned: the publishing side already moved on.
func (s *Service) deliver(ctx context.Context, topic string, msg mailer.Message) {
	record := storage.DeliveryRecord{
		ID:        s.newID(),
		Topic:     topic,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Status:    storage.DeliveryStatusDelivered,
		CreatedAt: s.now().UTC(),
	}
	if strings.TrimSpace(msg.To) == "" {
		record.Status = storage.DeliveryStatusFailed
		record.LastError = "recipient is empty"
	} else if err := s.mail.Send(ctx, msg); err != nil {
		log.Printf("notifications: send %s to %s: %v", topic, msg.To, err)
		record.Status = storage.DeliveryStatusFailed
		record.LastError = err.Error()
	}
	if err := s.store.CreateDelivery(ctx, record); err != nil {
		log.Printf("notifications: record %s delivery: %v", topic, err)
	}
}

func (s *Service) handleCaseAssigned(ctx context.Context, req *bus.Request) (any, error) {
	var msg api.CaseAssigned
	if err := req.Decode(&msg); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed case-assigned message", err)
	}
	s.deliver(ctx, api.TopicCaseAssigned, mailer.Message{
		To:      msg.To,
		Subject: fmt.Sprintf("Case %s assigned to you", msg.CaseNumber),
		Body: fmt.Sprintf("You have been assigned the case %q (%s) by %s.",
			msg.CaseTitle, msg.CaseNumber, msg.AssignedBy),
	})
	return nil, nil
}

func (s *Service) handleTaskAssigned(ctx context.Context, req *bus.Request) (any, error) {
	var msg api.TaskAssigned
	if err := req.Decode(&msg); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed task-assigned message", err)
	}
	s.deliver(ctx, api.TopicTaskAssigned, mailer.Message{
		To:      msg.To,
		Subject: "New task assigned to you",
		Body:    fmt.Sprintf("You have been assigned the task %q by %s.", msg.TaskName, msg.AssignedBy),
	})
	return nil, nil
}

func (s *Service) handlePasswordIssued(ctx context.Context, req *bus.Request) (any, error) {
	var msg api.PasswordIssued
	if err := req.Decode(&msg); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed password-issued message", err)
	}
	s.deliver(ctx, api.TopicPasswordIssued, mailer.Message{
		To:      msg.To,
		Subject: "Your account is ready",
		Body: fmt.Sprintf("An account was created for you.\n\nUsername: %s\nTemporary password: %s\n\nChange it after your first sign-in.",
			msg.Username, msg.TempPassword),
	})
	return nil, nil
}
