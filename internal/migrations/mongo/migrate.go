package mongo

import (
	"context"
	"fmt"

	availabilityrepo "booktable/internal/availability/repository"
	bookingsrepo "booktable/internal/bookings/repository"
	"booktable/internal/migrations/mongo/validators"
	notificationsrepo "booktable/internal/notifications/repository"
	restaurantsrepo "booktable/internal/restaurants/repository"
	"booktable/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	RestaurantsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "manager_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "is_approved", Value: 1},
			{Key: "address.city", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "is_approved", Value: 1},
			{Key: "address.zip", Value: 1},
		}},
	}

	// One bucket per (restaurant, date, table size); MergeDays and the
	// generator rely on it.
	AvailabilityIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "restaurant_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "table_size", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("bucket_unique"),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "date", Value: -1},
			{Key: "time", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "restaurant_id", Value: 1},
			{Key: "date", Value: -1},
			{Key: "time", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "created_at", Value: 1},
		}},
	}

	// event_id is only unique where present so notifications written
	// outside the event pipeline do not collide on a missing id.
	NotificationsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("event_unique").
				SetPartialFilterExpression(bson.M{"event_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "is_read", Value: 1},
		}},
	}
)

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection the services write, in creation order.
func Collections() []collectionDef {
	return []collectionDef{
		{Name: restaurantsrepo.CollectionName, Indexes: RestaurantsIndexes, Validator: validators.RestaurantValidator},
		{Name: availabilityrepo.CollectionName, Indexes: AvailabilityIndexes, Validator: validators.AvailabilityValidator},
		{Name: bookingsrepo.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: notificationsrepo.CollectionName, Indexes: NotificationsIndexes, Validator: validators.NotificationValidator},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
