package repository

import (
	"context"
	"fmt"

	"booktable/pkg/config"
	mongotx "booktable/pkg/db/mongo"
	"booktable/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ReviewsCollectionName = "Reviews"
)

// ReviewRepository reads the review statistics search results are annotated
// with. Reviews are written by another service.
type ReviewRepository interface {
	StatsFor(ctx context.Context, restaurantIDs []string) (map[string]model.ReviewStats, error)
}

type mongoReviewRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReviewRepository(cfg *config.Config) ReviewRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReviewRepository{
		cfg:        cfg,
		collection: db.Collection(ReviewsCollectionName),
	}
}

func (r *mongoReviewRepository) StatsFor(ctx context.Context, restaurantIDs []string) (map[string]model.ReviewStats, error) {
	stats := make(map[string]model.ReviewStats, len(restaurantIDs))
	if len(restaurantIDs) == 0 {
		return stats, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oids := make([]primitive.ObjectID, 0, len(restaurantIDs))
	for _, id := range restaurantIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"restaurant_id": bson.M{"$in": oids}}}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$restaurant_id",
			"average_rating": bson.M{"$avg": "$rating"},
			"review_count":   bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate review stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []model.ReviewStats
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode review stats: %w", err)
	}
	for _, row := range rows {
		stats[row.RestaurantID] = row
	}
	return stats, nil
}
