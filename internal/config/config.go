package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/campus-push/internal/domain"
)

const (
	StoreDynamo    = "dynamo"
	StoreFirestore = "firestore"

	PushFCM = "fcm"
	PushSNS = "sns"

	MinPollInterval = 2 * time.Second
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"3000"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	DynamoTables DynamoTables `envPrefix:"DYNAMO_TABLE_"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"dynamo"`
	PushProvider string `env:"PUSH_PROVIDER" envDefault:"fcm"`

	Firebase Firebase `envPrefix:"FIREBASE_"`

	SNSRegion         string `env:"SNS_REGION" envDefault:"us-east-1"`
	SNSTopicARNPrefix string `env:"SNS_TOPIC_ARN_PREFIX"`

	S3BucketName string        `env:"S3_BUCKET_NAME"`
	ImageURLTTL  time.Duration `env:"IMAGE_URL_TTL" envDefault:"168h"`

	Dispatch Dispatch `envPrefix:"DISPATCH_"`

	RedisURL     string `env:"REDIS_URL"`
	RabbitMQURL  string `env:"RABBITMQ_URL"`
	RabbitMQueue string `env:"RABBITMQ_QUEUE" envDefault:"notification.events"`
	RabbitMQDLQ  string `env:"RABBITMQ_DLQ" envDefault:"notification.events.dlq"`

	SMTP SMTP `envPrefix:"SMTP_"`

	JWTPrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./private_key.pem"`
	JWTPublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`
	JWTExpiryDays     int    `env:"JWT_EXPIRY_DAYS" envDefault:"7"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","` // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications    string `env:"NOTIFICATIONS" envDefault:"notifications"`
	DeviceTokens     string `env:"DEVICE_TOKENS" envDefault:"device_tokens"`
	Users            string `env:"USERS" envDefault:"users"`
	Universities     string `env:"UNIVERSITIES" envDefault:"universities"`
	UniversityAdmins string `env:"UNIVERSITY_ADMINS" envDefault:"university_admins"`
	SuperAdmins      string `env:"SUPER_ADMINS" envDefault:"super_admins"`
	Invites          string `env:"INVITES" envDefault:"invites"`
	Announcements    string `env:"ANNOUNCEMENTS" envDefault:"announcements"`
}

type Firebase struct {
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	ProjectID       string `env:"PROJECT_ID"`
}

// Dispatch tunes the poll-loop driver and the outcome recorder.
type Dispatch struct {
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"50"`
	Concurrency   int           `env:"CONCURRENCY" envDefault:"8"`
	RecordTimeout time.Duration `env:"RECORD_TIMEOUT" envDefault:"30s"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"0"` // 0 = unlimited
}

type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	From     string `env:"FROM" envDefault:"noreply@example.com"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// Enabled reports whether invite emails can be sent.
func (s SMTP) Enabled() bool { return s.Host != "" }

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return &cfg, nil
}

// Validate checks that the selected backends have the settings they need.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreDynamo:
	case StoreFirestore:
		if c.Firebase.CredentialsFile == "" && c.Firebase.ProjectID == "" {
			return fmt.Errorf("%w: STORE_BACKEND=firestore requires FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q", domain.ErrConfiguration, c.StoreBackend)
	}

	switch c.PushProvider {
	case PushFCM:
		if c.Firebase.CredentialsFile == "" && c.Firebase.ProjectID == "" {
			return fmt.Errorf("%w: PUSH_PROVIDER=fcm requires FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID", domain.ErrConfiguration)
		}
	case PushSNS:
		if c.SNSTopicARNPrefix == "" {
			return fmt.Errorf("%w: PUSH_PROVIDER=sns requires SNS_TOPIC_ARN_PREFIX", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown PUSH_PROVIDER %q", domain.ErrConfiguration, c.PushProvider)
	}

	if c.Dispatch.PollInterval < MinPollInterval {
		c.Dispatch.PollInterval = MinPollInterval
	}
	if c.Dispatch.BatchSize <= 0 {
		c.Dispatch.BatchSize = 50
	}
	if c.Dispatch.Concurrency <= 0 {
		c.Dispatch.Concurrency = 1
	}
	if c.Dispatch.MaxAttempts < 0 {
		return fmt.Errorf("%w: DISPATCH_MAX_ATTEMPTS must be >= 0", domain.ErrConfiguration)
	}
	return nil
}

// UsesFirebase reports whether any configured backend needs a Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.StoreBackend == StoreFirestore || c.PushProvider == PushFCM ||
		c.Firebase.CredentialsFile != "" || c.Firebase.ProjectID != ""
}
