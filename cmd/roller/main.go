package main

import (
	"context"
	"time"

	availabilityrepo "booktable/internal/availability/repository"
	"booktable/internal/availability/slots"
	"booktable/internal/restaurants/repository"
	"booktable/internal/restaurants/service"
	"booktable/internal/restaurants/validator"
	"booktable/pkg/app"
	"booktable/pkg/config"
)

const ServiceName = "availability-roller"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting availability roller", "interval", cfg.RollInterval)
	restaurantService := service.NewRestaurantService(
		repository.NewMongoRestaurantRepository(cfg),
		repository.NewMongoReviewRepository(cfg),
		availabilityrepo.NewCachedAvailabilityRepository(
			availabilityrepo.NewMongoAvailabilityRepository(cfg),
			cfg.Client.Redis,
			cfg.CacheTTL,
			cfg.Log,
		),
		slots.NewGeneratorFromConfig(cfg),
		validator.NewRestaurantValidator(cfg.Log),
		cfg,
	)

	serverApp := app.NewApplication(cfg)
	serverApp.AddWorker("availability_roller", func(ctx context.Context) error {
		return roll(ctx, cfg, restaurantService)
	})
	serverApp.SetApp()
	serverApp.Run()
}

// roll regenerates the window once at start-up and then every RollInterval.
// A failed pass is logged and retried on the next tick.
func roll(ctx context.Context, cfg *config.Config, restaurants service.RestaurantService) error {
	log := cfg.Log.Component("roller")
	ticker := time.NewTicker(cfg.RollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		n, err := restaurants.RollWindow(ctx)
		if err != nil {
			log.Error("Availability roll failed", "restaurants", n, "error", err)
		} else {
			log.Info("Availability window rolled", "restaurants", n, "duration", time.Since(start))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
