package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"API_FIRESTORE_PROJECT_ID": "parcelio-test",
		}),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.PubSub.Topic != "order-events" {
		t.Fatalf("topic = %q", cfg.PubSub.Topic)
	}
	if cfg.PubSub.PickupTopic != "pickup-events" {
		t.Fatalf("pickup topic = %q", cfg.PubSub.PickupTopic)
	}
	if cfg.PubSub.ProjectID != "parcelio-test" {
		t.Fatalf("pubsub project should default to the firestore project, got %q", cfg.PubSub.ProjectID)
	}
	if cfg.Delivery.MaxAttempts != 2 {
		t.Fatalf("max attempts = %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.Delivery.RetryDelay != 24*time.Hour {
		t.Fatalf("retry delay = %v", cfg.Delivery.RetryDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"API_SERVER_PORT":                "9090",
			"API_FIREBASE_PROJECT_ID":        "parcelio-prod",
			"API_DELIVERY_RETRY_DELAY":       "12h",
			"API_DELIVERY_MAX_ATTEMPTS":      "3",
			"API_FEATURE_PUSH_NOTIFICATIONS": "off",
		}),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "parcelio-prod" {
		t.Fatalf("firestore project should fall back to firebase project, got %q", cfg.Firestore.ProjectID)
	}
	if cfg.Delivery.RetryDelay != 12*time.Hour {
		t.Fatalf("retry delay = %v", cfg.Delivery.RetryDelay)
	}
	if cfg.Delivery.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.Features.EnablePushNotifications {
		t.Fatal("push notifications should be disabled")
	}
}

func TestLoadMissingProject(t *testing.T) {
	_, err := Load(WithEnvFile(""), WithoutSystemEnv(), WithEnvMap(map[string]string{}))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, field := range verr.Fields() {
		if field == "Firestore.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing fields = %v", verr.Fields())
	}
}
