package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/parcelio/api/internal/platform/config"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

const defaultSendTimeout = 10 * time.Second

// messageSender abstracts the FCM client so tests can capture outgoing pushes.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMDispatcher pushes settlement summaries to business devices over Firebase
// Cloud Messaging. Delivery is best effort: a business without a registered
// device token is skipped, send failures are returned for the caller to log.
type FCMDispatcher struct {
	sender     messageSender
	businesses repositories.BusinessRepository
	timeout    time.Duration
}

// FCMOption customises FCMDispatcher instances.
type FCMOption func(*FCMDispatcher)

// WithSendTimeout overrides the timeout applied to each FCM send.
func WithSendTimeout(d time.Duration) FCMOption {
	return func(f *FCMDispatcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithSender overrides the FCM client, primarily for tests.
func WithSender(sender messageSender) FCMOption {
	return func(f *FCMDispatcher) {
		if sender != nil {
			f.sender = sender
		}
	}
}

// NewFCMDispatcher constructs an FCM dispatcher backed by the Firebase Admin SDK.
func NewFCMDispatcher(ctx context.Context, cfg config.FirebaseConfig, businesses repositories.BusinessRepository, opts ...FCMOption) (*FCMDispatcher, error) {
	if businesses == nil {
		return nil, errors.New("fcm dispatcher: business repository is required")
	}

	dispatcher := &FCMDispatcher{
		businesses: businesses,
		timeout:    defaultSendTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}

	if dispatcher.sender == nil {
		if cfg.ProjectID == "" {
			return nil, errors.New("fcm dispatcher: firebase project id is required")
		}
		var clientOpts []option.ClientOption
		if cfg.CredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("initialise firebase app: %w", err)
		}
		client, err := app.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise fcm client: %w", err)
		}
		dispatcher.sender = client
	}

	return dispatcher, nil
}

// NotifyFinancialProcessing pushes the daily settlement summary to the
// business's registered device.
func (f *FCMDispatcher) NotifyFinancialProcessing(ctx context.Context, businessID string, info services.FinancialProcessingNotification) error {
	if f == nil || f.sender == nil {
		return errors.New("fcm dispatcher: not initialised")
	}

	business, err := f.businesses.FindByID(ctx, businessID)
	if err != nil {
		return fmt.Errorf("load business for push: %w", err)
	}
	if business.FCMToken == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	_, err = f.sender.Send(ctx, &messaging.Message{
		Token: business.FCMToken,
		Notification: &messaging.Notification{
			Title: "Daily settlement processed",
			Body:  fmt.Sprintf("%d orders settled for a total of %d EGP", info.OrdersProcessed, info.TotalAmount),
		},
		Data: map[string]string{
			"type":    "financialProcessing",
			"batchId": info.BatchID,
			"orders":  strconv.Itoa(info.OrdersProcessed),
			"amount":  strconv.FormatInt(info.TotalAmount, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("send settlement push: %w", err)
	}
	return nil
}

var _ services.SettlementNotifier = (*FCMDispatcher)(nil)
