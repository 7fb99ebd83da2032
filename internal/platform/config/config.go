package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	defaultEventTopic   = "order-events"
	defaultPickupTopic  = "pickup-events"
	defaultRetryDelay   = 24 * time.Hour
	defaultMaxAttempts  = 2
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Delivery  DeliveryConfig
	Features  FeatureFlags
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores push notification settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig stores the domain event topic settings.
type PubSubConfig struct {
	ProjectID   string
	Topic       string
	PickupTopic string
}

// DeliveryConfig controls delivery retry behaviour.
type DeliveryConfig struct {
	// RetryDelay is how long after a failed attempt the order waits in
	// waitingAction before the retry leg.
	RetryDelay time.Duration
	// MaxAttempts is the failed-attempt count that forces full return
	// initiation.
	MaxAttempts int
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnablePushNotifications bool
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path consulted during Load.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit key/value overrides, primarily for tests.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables os.Environ lookups, primarily for tests.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// ValidationError lists required configuration fields that are missing.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: missing required fields: %s", strings.Join(e.fields, ", "))
}

// Fields returns the missing field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Load assembles the application configuration by combining defaults, .env
// overrides and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	fileValues, err := parseEnvFile(options.envFile)
	if err != nil {
		return Config{}, err
	}

	env := envSource{
		overrides:    options.envMap,
		fileValues:   fileValues,
		useSystemEnv: options.useSystemEnv,
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         env.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  env.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: env.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  env.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       env.str("API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: env.str("API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    env.str("API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: env.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:   env.str("API_PUBSUB_PROJECT_ID", ""),
			Topic:       env.str("API_PUBSUB_EVENT_TOPIC", defaultEventTopic),
			PickupTopic: env.str("API_PUBSUB_PICKUP_TOPIC", defaultPickupTopic),
		},
		Delivery: DeliveryConfig{
			RetryDelay:  env.duration("API_DELIVERY_RETRY_DELAY", defaultRetryDelay),
			MaxAttempts: env.integer("API_DELIVERY_MAX_ATTEMPTS", defaultMaxAttempts),
		},
		Features: FeatureFlags{
			EnablePushNotifications: env.boolean("API_FEATURE_PUSH_NOTIFICATIONS", true),
		},
	}

	// Firestore and Pub/Sub projects default to the Firebase project.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Delivery.RetryDelay <= 0 {
		missing = append(missing, "Delivery.RetryDelay")
	}
	if cfg.Delivery.MaxAttempts <= 0 {
		missing = append(missing, "Delivery.MaxAttempts")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

// envSource resolves a key against, in order, explicit overrides, the
// process environment, and the parsed env file.
type envSource struct {
	overrides    map[string]string
	fileValues   map[string]string
	useSystemEnv bool
}

func (s envSource) lookup(key string) string {
	if value, ok := s.overrides[key]; ok {
		return value
	}
	if s.useSystemEnv {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
	}
	return s.fileValues[key]
}

func (s envSource) str(key, fallback string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return fallback
}

func (s envSource) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s.lookup(key)); err == nil {
		return d
	}
	return fallback
}

func (s envSource) integer(key string, fallback int) int {
	if n, err := strconv.Atoi(s.lookup(key)); err == nil {
		return n
	}
	return fallback
}

func (s envSource) boolean(key string, fallback bool) bool {
	switch strings.ToLower(s.lookup(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// parseEnvFile reads KEY=VALUE lines. A missing file is not an error so
// deployments without a .env just use the environment.
func parseEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return values, nil
}
