package main

import (
	availabilityrepo "booktable/internal/availability/repository"
	"booktable/internal/availability/slots"
	"booktable/internal/restaurants/handler"
	"booktable/internal/restaurants/repository"
	"booktable/internal/restaurants/service"
	"booktable/internal/restaurants/validator"
	"booktable/pkg/app"
	"booktable/pkg/config"
)

const ServiceName = "restaurants"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Restaurants service")
	restaurantService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewRestaurantHandler(restaurantService, serverApp.Authenticator(), cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.RestaurantService {
	availability := availabilityrepo.NewCachedAvailabilityRepository(
		availabilityrepo.NewMongoAvailabilityRepository(cfg),
		cfg.Client.Redis,
		cfg.CacheTTL,
		cfg.Log,
	)
	restaurantService := service.NewRestaurantService(
		repository.NewMongoRestaurantRepository(cfg),
		repository.NewMongoReviewRepository(cfg),
		availability,
		slots.NewGeneratorFromConfig(cfg),
		validator.NewRestaurantValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Restaurant service initialized",
		"database", cfg.MongoDatabaseName,
		"slot_capacity_mode", cfg.SlotCapacityMode,
	)
	return restaurantService
}
