package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "booktable"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr     = ""
	DefaultRedisDB       = 0
	DefaultCacheTTL      = 5 * time.Minute
	DefaultRedisConnTime = 3 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultCORSAllowedOrigins = "*"

	DefaultAvailabilityWindowDays = 30
	DefaultSlotIntervalMinutes    = 30
	DefaultTemplateOverrideDays   = 3
	DefaultSearchTolerance        = 30 * time.Minute
	DefaultSlotCapacityMode       = SlotCapacityMultiset
	DefaultBookingMaxRetries      = 1

	DefaultEventQueueSize = 256
	DefaultEventWorkers   = 2

	DefaultBookingEventsTopic    = "booking-events"
	DefaultBookingEventsDLQTopic = "booking-events-dlq"
	DefaultNotifierGroupID       = "booktable-notifier"

	DefaultSMTPPort        = 587
	DefaultMailFrom        = "no-reply@booktable.local"
	DefaultMailMaxAttempts = 3
	DefaultMailRetryDelay  = 2 * time.Second

	DefaultRollInterval = 24 * time.Hour
)

const (
	// SlotCapacityMultiset lets one time slot hold as many bookings as there
	// are physical tables of that size.
	SlotCapacityMultiset = "multiset"
	// SlotCapacitySingle allows a single booking per table size and time.
	SlotCapacitySingle = "single"
)
