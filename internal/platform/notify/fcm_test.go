package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"

	domain "github.com/parcelio/api/internal/domain"
	"github.com/parcelio/api/internal/platform/config"
	"github.com/parcelio/api/internal/services"
)

type stubSender struct {
	sent []*messaging.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, message *messaging.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, message)
	return "msg-1", nil
}

type stubBusinessRepo struct {
	business domain.Business
	err      error
}

func (s *stubBusinessRepo) FindByID(context.Context, string) (domain.Business, error) {
	return s.business, s.err
}

func (s *stubBusinessRepo) AdjustBalance(context.Context, string, int64) (int64, error) {
	return 0, errors.New("not implemented")
}

func TestNotifyFinancialProcessingSendsPush(t *testing.T) {
	sender := &stubSender{}
	businesses := &stubBusinessRepo{
		business: domain.Business{ID: "biz_1", FCMToken: "tok-123"},
	}
	dispatcher, err := NewFCMDispatcher(context.Background(), config.FirebaseConfig{}, businesses, WithSender(sender))
	if err != nil {
		t.Fatalf("NewFCMDispatcher: %v", err)
	}

	info := services.FinancialProcessingNotification{
		BatchID:         "BATCH-x",
		OrdersProcessed: 3,
		TotalAmount:     1200,
		ProcessedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	if err := dispatcher.NotifyFinancialProcessing(context.Background(), "biz_1", info); err != nil {
		t.Fatalf("NotifyFinancialProcessing: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Token != "tok-123" {
		t.Errorf("token = %q", msg.Token)
	}
	if msg.Data["batchId"] != "BATCH-x" || msg.Data["orders"] != "3" || msg.Data["amount"] != "1200" {
		t.Errorf("data = %v", msg.Data)
	}
	if msg.Notification == nil || msg.Notification.Title == "" {
		t.Error("notification payload missing")
	}
}

func TestNotifyFinancialProcessingSkipsBusinessWithoutToken(t *testing.T) {
	sender := &stubSender{}
	businesses := &stubBusinessRepo{business: domain.Business{ID: "biz_1"}}
	dispatcher, err := NewFCMDispatcher(context.Background(), config.FirebaseConfig{}, businesses, WithSender(sender))
	if err != nil {
		t.Fatalf("NewFCMDispatcher: %v", err)
	}

	if err := dispatcher.NotifyFinancialProcessing(context.Background(), "biz_1", services.FinancialProcessingNotification{}); err != nil {
		t.Fatalf("NotifyFinancialProcessing: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("messages sent = %d for a tokenless business", len(sender.sent))
	}
}

func TestNotifyFinancialProcessingSurfacesSendFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("fcm down")}
	businesses := &stubBusinessRepo{
		business: domain.Business{ID: "biz_1", FCMToken: "tok-123"},
	}
	dispatcher, err := NewFCMDispatcher(context.Background(), config.FirebaseConfig{}, businesses, WithSender(sender))
	if err != nil {
		t.Fatalf("NewFCMDispatcher: %v", err)
	}

	if err := dispatcher.NotifyFinancialProcessing(context.Background(), "biz_1", services.FinancialProcessingNotification{}); err == nil {
		t.Fatal("expected send failure to surface")
	}
}
