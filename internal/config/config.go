package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Voice    VoiceConfig
	SMS      SMSConfig
	Dispatch DispatchConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for managed-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// VoiceConfig configures the outbound AI-voice provider.
// Missing credentials are a fatal startup error: a dispatcher that cannot
// reach the provider must never start accepting campaign requests.
type VoiceConfig struct {
	APIKey        string
	PhoneNumberID string

	// WebhookSecret is the shared bearer secret the provider presents on
	// end-of-call report delivery.
	WebhookSecret string

	// WebhookURL is the public URL the provider posts reports to.
	WebhookURL string

	// CostPerCallMinor is the fixed per-call estimate (minor units) used for
	// campaign cost projection.
	CostPerCallMinor int64

	// InterCallDelay is the fixed pause after each successful dispatch;
	// this is the client-side rate-limiting mechanism.
	InterCallDelay time.Duration
}

// SMSConfig configures the SMS provider used for urgent escalation pings.
// The whole section is optional; leaving AccountSID empty disables SMS.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// OnCallNumber receives escalation notifications.
	OnCallNumber string
}

type DispatchConfig struct {
	// AttemptTimeout is how long a call attempt may sit in_progress before
	// the sweep stops waiting for the provider report.
	AttemptTimeout time.Duration

	// SweepInterval controls how often the stale-attempt sweep runs.
	SweepInterval time.Duration

	// OrgConcurrency caps concurrent dispatch runs per organization.
	OrgConcurrency int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Voice.APIKey = os.Getenv("VOICE_API_KEY")
	c.Voice.PhoneNumberID = strings.TrimSpace(os.Getenv("VOICE_PHONE_NUMBER_ID"))
	c.Voice.WebhookSecret = os.Getenv("VOICE_WEBHOOK_SECRET")
	c.Voice.WebhookURL = strings.TrimSpace(os.Getenv("VOICE_WEBHOOK_URL"))
	c.Voice.CostPerCallMinor = optInt64("VOICE_COST_PER_CALL_MINOR")
	c.Voice.InterCallDelay = mustDuration("VOICE_INTER_CALL_DELAY")

	c.SMS.AccountSID = strings.TrimSpace(os.Getenv("SMS_ACCOUNT_SID"))
	c.SMS.AuthToken = os.Getenv("SMS_AUTH_TOKEN")
	c.SMS.FromNumber = strings.TrimSpace(os.Getenv("SMS_FROM_NUMBER"))
	c.SMS.OnCallNumber = strings.TrimSpace(os.Getenv("SMS_ON_CALL_NUMBER"))

	c.Dispatch.AttemptTimeout = mustDuration("DISPATCH_ATTEMPT_TIMEOUT")
	c.Dispatch.SweepInterval = mustDuration("DISPATCH_SWEEP_INTERVAL")
	c.Dispatch.OrgConcurrency = optInt("DISPATCH_ORG_CONCURRENCY")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	// Voice provider credentials are fatal when missing: campaigns cannot be
	// dispatched and reports cannot be authenticated without them.
	if c.Voice.APIKey == "" {
		errs = append(errs, errors.New("VOICE_API_KEY is required"))
	}
	if c.Voice.PhoneNumberID == "" {
		errs = append(errs, errors.New("VOICE_PHONE_NUMBER_ID is required"))
	}
	if c.Voice.WebhookSecret == "" {
		errs = append(errs, errors.New("VOICE_WEBHOOK_SECRET is required"))
	}
	if c.Voice.CostPerCallMinor <= 0 {
		c.Voice.CostPerCallMinor = 50
	}
	if c.Voice.InterCallDelay <= 0 {
		c.Voice.InterCallDelay = 2 * time.Second
	}

	// SMS is optional, but a partially configured section is a mistake.
	if c.SMS.AccountSID != "" {
		if c.SMS.AuthToken == "" {
			errs = append(errs, errors.New("SMS_AUTH_TOKEN is required when SMS_ACCOUNT_SID is set"))
		}
		if c.SMS.FromNumber == "" {
			errs = append(errs, errors.New("SMS_FROM_NUMBER is required when SMS_ACCOUNT_SID is set"))
		}
	}

	if c.Dispatch.AttemptTimeout <= 0 {
		c.Dispatch.AttemptTimeout = 6 * time.Hour
	}
	if c.Dispatch.SweepInterval <= 0 {
		c.Dispatch.SweepInterval = 15 * time.Minute
	}
	if c.Dispatch.OrgConcurrency <= 0 {
		c.Dispatch.OrgConcurrency = 2
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) SMSEnabled() bool {
	return c.SMS.AccountSID != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optInt64(key string) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
