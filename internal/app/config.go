package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	AWSRegion        string   `envconfig:"AWS_REGION" required:"true"`
	UserPoolID       string   `envconfig:"COGNITO_USER_POOL_ID" required:"true"`
	UserPoolClientID string   `envconfig:"COGNITO_CLIENT_ID" required:"true"`
	IdentityPoolID   string   `envconfig:"COGNITO_IDENTITY_POOL_ID" required:"true"`
	HostedUIDomain   string   `envconfig:"COGNITO_HOSTED_DOMAIN" required:"true"`
	OAuthScopes      []string `envconfig:"OAUTH_SCOPES" default:"openid,email,profile"`
	RedirectSignIn   string   `envconfig:"OAUTH_REDIRECT_SIGNIN" required:"true"`
	RedirectSignOut  string   `envconfig:"OAUTH_REDIRECT_SIGNOUT" required:"true"`

	RecordsTable   string `envconfig:"RECORDS_TABLE" required:"true"`
	HomeworkBucket string `envconfig:"HOMEWORK_BUCKET" required:"true"`

	RedisAddr  string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
