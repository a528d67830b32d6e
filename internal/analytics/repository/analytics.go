package repository

import (
	"context"
	"fmt"
	"time"

	bookingsrepo "booktable/internal/bookings/repository"
	"booktable/pkg/config"
	mongotx "booktable/pkg/db/mongo"
	"booktable/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AnalyticsRepository interface {
	// DailyStats groups confirmed bookings created at or after since by
	// booking date, oldest date first.
	DailyStats(ctx context.Context, since time.Time) ([]model.DailyStat, error)
}

type mongoAnalyticsRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAnalyticsRepository(cfg *config.Config) AnalyticsRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAnalyticsRepository{
		cfg:        cfg,
		collection: db.Collection(bookingsrepo.CollectionName),
	}
}

// DailyStatsPipeline groups on the stored "YYYY-MM-DD" string, so the day a
// booking counts towards never depends on a time zone.
func DailyStatsPipeline(since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":     model.BookingStatusConfirmed,
			"created_at": bson.M{"$gte": since.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":                "$date",
			"total_bookings":     bson.M{"$sum": 1},
			"average_party_size": bson.M{"$avg": "$party_size"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
}

func (r *mongoAnalyticsRepository) DailyStats(ctx context.Context, since time.Time) ([]model.DailyStat, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Aggregate(ctx, DailyStatsPipeline(since))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate booking stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := []model.DailyStat{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode booking stats: %w", err)
	}
	return stats, nil
}
