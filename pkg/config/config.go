package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"booktable/pkg/client"
	"booktable/pkg/logger"

	"github.com/joho/godotenv"
)

var mongoURIRegex = regexp.MustCompile(`^mongodb(\+srv)?://`)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	Port string

	JWTSecret          string
	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	AvailabilityWindowDays int
	SlotIntervalMinutes    int
	TemplateOverrideDays   int
	SearchTolerance        time.Duration
	SlotCapacityMode       string
	BookingMaxRetries      int

	EventQueueSize        int
	EventWorkers          int
	BookingEventsTopic    string
	BookingEventsDLQTopic string
	NotifierGroupID       string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string
	MailMaxAttempts int
	MailRetryDelay  time.Duration

	RollInterval time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	dotenvErr := godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),
		CacheTTL:      getEnvDuration(EnvCacheTTL, DefaultCacheTTL),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret:          getEnvStr(EnvJWTSecret, ""),
		CORSAllowedOrigins: splitList(getEnvStr(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins)),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		AvailabilityWindowDays: getEnvNum(EnvAvailabilityWindowDays, DefaultAvailabilityWindowDays),
		SlotIntervalMinutes:    getEnvNum(EnvSlotIntervalMinutes, DefaultSlotIntervalMinutes),
		TemplateOverrideDays:   getEnvNum(EnvTemplateOverrideDays, DefaultTemplateOverrideDays),
		SearchTolerance:        getEnvDuration(EnvSearchTolerance, DefaultSearchTolerance),
		SlotCapacityMode:       getEnvStr(EnvSlotCapacityMode, DefaultSlotCapacityMode),
		BookingMaxRetries:      getEnvNum(EnvBookingMaxRetries, DefaultBookingMaxRetries),

		EventQueueSize:        getEnvNum(EnvEventQueueSize, DefaultEventQueueSize),
		EventWorkers:          getEnvNum(EnvEventWorkers, DefaultEventWorkers),
		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, DefaultBookingEventsDLQTopic),
		NotifierGroupID:       getEnvStr(EnvNotifierGroupID, DefaultNotifierGroupID),

		SMTPHost:        getEnvStr(EnvSMTPHost, ""),
		SMTPPort:        getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername:    getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword:    getEnvStr(EnvSMTPPassword, ""),
		MailFrom:        getEnvStr(EnvMailFrom, DefaultMailFrom),
		MailMaxAttempts: getEnvNum(EnvMailMaxAttempts, DefaultMailMaxAttempts),
		MailRetryDelay:  getEnvDuration(EnvMailRetryDelay, DefaultMailRetryDelay),

		RollInterval: getEnvDuration(EnvRollInterval, DefaultRollInterval),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to load .env file", "error", dotenvErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis is a no-op when REDIS_ADDR is unset.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("REDIS_ADDR not set, availability cache disabled")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, DefaultRedisConnTime)
}

func (cfg *Config) Database() string {
	return cfg.MongoDatabaseName
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !mongoURIRegex.MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"CacheTTL", cfg.CacheTTL},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"SearchTolerance", cfg.SearchTolerance},
		{"RollInterval", cfg.RollInterval},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.MailRetryDelay < 0 {
		errs = append(errs, fmt.Sprintf("MailRetryDelay cannot be negative, got: %s", cfg.MailRetryDelay))
	}

	positiveInts := []struct {
		name  string
		value int
	}{
		{"RateLimitRequests", cfg.RateLimitRequests},
		{"MaxRequestSize", cfg.MaxRequestSize},
		{"AvailabilityWindowDays", cfg.AvailabilityWindowDays},
		{"SlotIntervalMinutes", cfg.SlotIntervalMinutes},
		{"EventQueueSize", cfg.EventQueueSize},
		{"EventWorkers", cfg.EventWorkers},
		{"MailMaxAttempts", cfg.MailMaxAttempts},
	}
	for _, n := range positiveInts {
		if n.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %d", n.name, n.value))
		}
	}

	if cfg.TemplateOverrideDays < 0 || cfg.TemplateOverrideDays > cfg.AvailabilityWindowDays {
		errs = append(errs, fmt.Sprintf("TemplateOverrideDays must be between 0 and AvailabilityWindowDays (%d), got: %d", cfg.AvailabilityWindowDays, cfg.TemplateOverrideDays))
	}
	if cfg.SlotIntervalMinutes > 0 && (24*60)%cfg.SlotIntervalMinutes != 0 {
		errs = append(errs, fmt.Sprintf("SlotIntervalMinutes must divide a day evenly, got: %d", cfg.SlotIntervalMinutes))
	}
	if cfg.SlotCapacityMode != SlotCapacityMultiset && cfg.SlotCapacityMode != SlotCapacitySingle {
		errs = append(errs, fmt.Sprintf("SlotCapacityMode must be %q or %q, got: %s", SlotCapacityMultiset, SlotCapacitySingle, cfg.SlotCapacityMode))
	}
	if cfg.BookingMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("BookingMaxRetries cannot be negative, got: %d", cfg.BookingMaxRetries))
	}
	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"cache_ttl", cfg.CacheTTL,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"availability_window_days", cfg.AvailabilityWindowDays,
		"slot_interval_minutes", cfg.SlotIntervalMinutes,
		"template_override_days", cfg.TemplateOverrideDays,
		"search_tolerance", cfg.SearchTolerance,
		"slot_capacity_mode", cfg.SlotCapacityMode,
		"booking_max_retries", cfg.BookingMaxRetries,
		"event_queue_size", cfg.EventQueueSize,
		"event_workers", cfg.EventWorkers,
		"booking_events_topic", cfg.BookingEventsTopic,
		"smtp_host", cfg.SMTPHost,
		"mail_max_attempts", cfg.MailMaxAttempts,
		"mail_retry_delay", cfg.MailRetryDelay,
		"roll_interval", cfg.RollInterval,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return min(limit, DefaultPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
