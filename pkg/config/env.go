package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvCacheTTL      = "CACHE_TTL"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret          = "JWT_SECRET"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvAvailabilityWindowDays = "AVAILABILITY_WINDOW_DAYS"
	EnvSlotIntervalMinutes    = "SLOT_INTERVAL_MINUTES"
	EnvTemplateOverrideDays   = "TEMPLATE_OVERRIDE_DAYS"
	EnvSearchTolerance        = "SEARCH_TOLERANCE"
	EnvSlotCapacityMode       = "SLOT_CAPACITY_MODE"
	EnvBookingMaxRetries      = "BOOKING_MAX_RETRIES"

	EnvEventQueueSize        = "EVENT_QUEUE_SIZE"
	EnvEventWorkers          = "EVENT_WORKERS"
	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
	EnvNotifierGroupID       = "NOTIFIER_GROUP_ID"

	EnvSMTPHost        = "SMTP_HOST"
	EnvSMTPPort        = "SMTP_PORT"
	EnvSMTPUsername    = "SMTP_USERNAME"
	EnvSMTPPassword    = "SMTP_PASSWORD"
	EnvMailFrom        = "MAIL_FROM"
	EnvMailMaxAttempts = "MAIL_MAX_ATTEMPTS"
	EnvMailRetryDelay  = "MAIL_RETRY_DELAY"

	EnvRollInterval = "ROLL_INTERVAL"
)
