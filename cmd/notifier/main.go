package main

import (
	"context"

	"booktable/internal/notifications/handler"
	"booktable/internal/notifications/mailer"
	"booktable/internal/notifications/repository"
	"booktable/internal/notifications/service"
	"booktable/pkg/app"
	"booktable/pkg/config"
	"booktable/pkg/contracts"
	"booktable/pkg/kafka"
	kafkaconfig "booktable/pkg/kafka/config"
	kafkamiddleware "booktable/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Notifier service")
	repo := repository.NewMongoNotificationRepository(cfg)
	notifier := service.NewNotifier(repo, mailer.New(cfg), cfg.Log)

	serverApp := app.NewApplication(cfg)
	initConsumer(cfg, serverApp, notifier)
	serverApp.SetApp(handler.NewNotificationHandler(
		service.NewNotificationService(repo, cfg.Log),
		serverApp.Authenticator(),
		cfg.Log,
	))
	serverApp.Run()
}

func initConsumer(cfg *config.Config, serverApp *app.Application, notifier service.Notifier) {
	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.NotifierGroupID,
		cfg.BookingEventsDLQTopic,
		handler.BookingEvents(notifier),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	counters := &kafkamiddleware.Counters{}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafkamiddleware.Logging(cfg.Log, "consumer"))
		consumer.Use(counters.Middleware())
	}

	serverApp.AddWorker("booking_events_consumer", consumer.Start)
	serverApp.AddCloser("kafka_consumer", contracts.CloserFunc(func(context.Context) error {
		counters.Log(cfg.Log, "booking_events_consumer")
		return consumer.Close()
	}))
}
