package main

import (
	"context"

	analyticshandler "booktable/internal/analytics/handler"
	analyticsrepo "booktable/internal/analytics/repository"
	analyticsservice "booktable/internal/analytics/service"
	availabilityrepo "booktable/internal/availability/repository"
	"booktable/internal/bookings/handler"
	"booktable/internal/bookings/repository"
	"booktable/internal/bookings/service"
	"booktable/internal/bookings/validator"
	"booktable/internal/events"
	restaurantsrepo "booktable/internal/restaurants/repository"
	"booktable/pkg/app"
	"booktable/pkg/config"
	"booktable/pkg/contracts"
	"booktable/pkg/kafka"
	kafkaconfig "booktable/pkg/kafka/config"
	kafkamiddleware "booktable/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	dispatcher := initEvents(cfg, serverApp)
	bookingService := initServices(cfg, dispatcher)
	analyticsService := analyticsservice.NewAnalyticsService(analyticsrepo.NewMongoAnalyticsRepository(cfg), cfg)

	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, serverApp.Authenticator(), cfg.Log),
		analyticshandler.NewAnalyticsHandler(analyticsService, serverApp.Authenticator(), cfg.Log),
	)
	serverApp.Run()
}

// initEvents wires the dispatcher to the booking-events producer. Closers run
// in reverse, so the dispatcher drains into the producer before it closes.
func initEvents(cfg *config.Config, serverApp *app.Application) *events.Dispatcher {
	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	counters := &kafkamiddleware.Counters{}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.Logging(cfg.Log, "producer"))
		producer.Use(counters.Middleware())
	}
	serverApp.AddCloser("kafka_producer", contracts.CloserFunc(func(context.Context) error {
		counters.Log(cfg.Log, "booking_events_producer")
		return producer.Close()
	}))

	dispatcher := events.NewDispatcher(producer, cfg.EventQueueSize, cfg.EventWorkers, cfg.Log)
	dispatcher.Start()
	serverApp.AddCloser("event_dispatcher", dispatcher)
	return dispatcher
}

func initServices(cfg *config.Config, emitter events.Emitter) service.BookingService {
	availability := availabilityrepo.NewCachedAvailabilityRepository(
		availabilityrepo.NewMongoAvailabilityRepository(cfg),
		cfg.Client.Redis,
		cfg.CacheTTL,
		cfg.Log,
	)
	bookingService := service.NewBookingService(
		repository.NewMongoBookingRepository(cfg),
		availability,
		restaurantsrepo.NewMongoRestaurantRepository(cfg),
		emitter,
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
