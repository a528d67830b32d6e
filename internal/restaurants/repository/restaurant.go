package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	restauranterrors "booktable/internal/restaurants/errors"
	"booktable/pkg/config"
	mongotx "booktable/pkg/db/mongo"
	"booktable/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Restaurants"
)

type RestaurantRepository interface {
	Create(ctx context.Context, r *model.Restaurant) error
	FindByID(ctx context.Context, id string) (*model.Restaurant, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, error)
	Count(ctx context.Context) (int64, error)
	FindByManager(ctx context.Context, managerID string, limit int, offset int64) ([]*model.Restaurant, error)
	CountByManager(ctx context.Context, managerID string) (int64, error)
	Update(ctx context.Context, id string, r *model.Restaurant) error
	SetApproval(ctx context.Context, id string, approved bool) error

	// Search returns approved restaurants whose city contains location
	// (case-insensitive) or whose zip equals it, ordered by id. An empty
	// location matches every approved restaurant.
	Search(ctx context.Context, location string) ([]*model.Restaurant, error)
}

type mongoRestaurantRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRestaurantRepository(cfg *config.Config) RestaurantRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRestaurantRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", restauranterrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoRestaurantRepository) Create(ctx context.Context, restaurant *model.Restaurant) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	restaurant.CreatedAt = now
	restaurant.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, restaurant)
	if err != nil {
		return fmt.Errorf("failed to create restaurant: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		restaurant.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRestaurantRepository) FindByID(ctx context.Context, id string) (*model.Restaurant, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var restaurant model.Restaurant
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&restaurant); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", restauranterrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find restaurant: %w", err)
	}
	return &restaurant, nil
}

func (r *mongoRestaurantRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoRestaurantRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoRestaurantRepository) FindByManager(ctx context.Context, managerID string, limit int, offset int64) ([]*model.Restaurant, error) {
	return r.find(ctx, bson.M{"manager_id": managerID}, limit, offset)
}

func (r *mongoRestaurantRepository) CountByManager(ctx context.Context, managerID string) (int64, error) {
	return r.count(ctx, bson.M{"manager_id": managerID})
}

func (r *mongoRestaurantRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Restaurant, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	restaurants := []*model.Restaurant{}
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode restaurants: %w", err)
	}
	return restaurants, nil
}

func (r *mongoRestaurantRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count restaurants: %w", err)
	}
	return count, nil
}

func (r *mongoRestaurantRepository) Update(ctx context.Context, id string, restaurant *model.Restaurant) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	restaurant.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"name":         restaurant.Name,
			"description":  restaurant.Description,
			"cuisine_type": restaurant.CuisineType,
			"cost_rating":  restaurant.CostRating,
			"address":      restaurant.Address,
			"contact":      restaurant.Contact,
			"hours":        restaurant.Hours,
			"tables":       restaurant.Tables,
			"photos":       restaurant.Photos,
			"updated_at":   restaurant.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update restaurant: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", restauranterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoRestaurantRepository) SetApproval(ctx context.Context, id string, approved bool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"is_approved": approved,
			"is_pending":  !approved,
			"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update restaurant approval: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", restauranterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoRestaurantRepository) Search(ctx context.Context, location string) ([]*model.Restaurant, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"is_approved": true}
	if location != "" {
		filter["$or"] = []bson.M{
			{"address.city": primitive.Regex{Pattern: regexp.QuoteMeta(location), Options: "i"}},
			{"address.zip": location},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var restaurants []*model.Restaurant
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode restaurants: %w", err)
	}
	return restaurants, nil
}
