package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availabilityerrors "booktable/internal/availability/errors"
	"booktable/pkg/civil"
	"booktable/pkg/config"
	mongotx "booktable/pkg/db/mongo"
	"booktable/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availability"
)

// MergeFunc receives the stored days of a range and returns the days to write.
// Only the dates it returns are replaced.
type MergeFunc func(existing []model.AvailabilityDay) []model.AvailabilityDay

type AvailabilityRepository interface {
	// FindExact returns the smallest bucket with TableSize >= minSize that has a
	// free table at exactly t.
	FindExact(ctx context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay) (*model.SizeBucket, error)
	// FindNearest is FindExact with any free time in [t-tolerance, t+tolerance].
	FindNearest(ctx context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay, tolerance time.Duration) (*model.SizeBucket, error)
	// RestaurantsWithAvailability narrows restaurantIDs to those with a free
	// table of at least minSize within tolerance of t on date.
	RestaurantsWithAvailability(ctx context.Context, restaurantIDs []string, date civil.Date, minSize int, t civil.TimeOfDay, tolerance time.Duration) ([]string, error)
	RemoveSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error
	RestoreSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error
	GetDay(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error)
	ListDays(ctx context.Context, restaurantID string, from, to civil.Date) ([]model.AvailabilityDay, error)
	MergeDays(ctx context.Context, restaurantID string, from, to civil.Date, merge MergeFunc) ([]civil.Date, error)
	DeleteBefore(ctx context.Context, date civil.Date) (int64, error)
}

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func refFilter(ref model.BucketRef) bson.M {
	return bson.M{
		"restaurant_id": ref.RestaurantID,
		"date":          ref.Date.String(),
		"table_size":    ref.TableSize,
	}
}

// timeWindow returns the inclusive [t-tolerance, t+tolerance] range clamped to
// the day. "HH:MM" strings order the same way as the times they encode.
func timeWindow(t civil.TimeOfDay, tolerance time.Duration) (string, string) {
	tol := int(tolerance / time.Minute)
	lo := max(t.Minutes()-tol, 0)
	hi := min(t.Minutes()+tol, civil.MinutesPerDay-1)
	return civil.TimeFromMinutes(lo).String(), civil.TimeFromMinutes(hi).String()
}

func (r *mongoAvailabilityRepository) findSmallest(ctx context.Context, filter bson.M) (*model.SizeBucket, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "table_size", Value: 1}})

	var bucket model.SizeBucket
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&bucket); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrNoBucket
		}
		return nil, fmt.Errorf("failed to find availability bucket: %w", err)
	}
	return &bucket, nil
}

func (r *mongoAvailabilityRepository) FindExact(ctx context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay) (*model.SizeBucket, error) {
	return r.findSmallest(ctx, bson.M{
		"restaurant_id": restaurantID,
		"date":          date.String(),
		"table_size":    bson.M{"$gte": minSize},
		"slots": bson.M{"$elemMatch": bson.M{
			"time":      t.String(),
			"remaining": bson.M{"$gt": 0},
		}},
	})
}

func (r *mongoAvailabilityRepository) FindNearest(ctx context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay, tolerance time.Duration) (*model.SizeBucket, error) {
	lo, hi := timeWindow(t, tolerance)
	return r.findSmallest(ctx, bson.M{
		"restaurant_id": restaurantID,
		"date":          date.String(),
		"table_size":    bson.M{"$gte": minSize},
		"slots": bson.M{"$elemMatch": bson.M{
			"time":      bson.M{"$gte": lo, "$lte": hi},
			"remaining": bson.M{"$gt": 0},
		}},
	})
}

func (r *mongoAvailabilityRepository) RestaurantsWithAvailability(ctx context.Context, restaurantIDs []string, date civil.Date, minSize int, t civil.TimeOfDay, tolerance time.Duration) ([]string, error) {
	if len(restaurantIDs) == 0 {
		return []string{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	lo, hi := timeWindow(t, tolerance)
	filter := bson.M{
		"restaurant_id": bson.M{"$in": restaurantIDs},
		"date":          date.String(),
		"table_size":    bson.M{"$gte": minSize},
		"slots": bson.M{"$elemMatch": bson.M{
			"time":      bson.M{"$gte": lo, "$lte": hi},
			"remaining": bson.M{"$gt": 0},
		}},
	}

	values, err := r.collection.Distinct(ctx, "restaurant_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search availability: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// RemoveSlot takes one table at t. The filter and the decrement are a single
// document update, so two callers racing for the last table cannot both match.
func (r *mongoAvailabilityRepository) RemoveSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := refFilter(ref)
	filter["slots"] = bson.M{"$elemMatch": bson.M{
		"time":      t.String(),
		"remaining": bson.M{"$gte": 1},
	}}
	update := bson.M{
		"$inc": bson.M{"slots.$.remaining": -1, "slots.$.booked": 1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove slot: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	found, err := r.slotExists(ctx, ref, t)
	if err != nil {
		return err
	}
	if !found {
		return availabilityerrors.ErrBucketNotFound
	}
	return availabilityerrors.ErrSlotTaken
}

func (r *mongoAvailabilityRepository) slotExists(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) (bool, error) {
	filter := refFilter(ref)
	filter["slots.time"] = t.String()
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check slot existence: %w", err)
	}
	return n > 0, nil
}

func (r *mongoAvailabilityRepository) RestoreSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := refFilter(ref)
	filter["slots"] = bson.M{"$elemMatch": bson.M{
		"time":   t.String(),
		"booked": bson.M{"$gte": 1},
	}}
	update := bson.M{
		"$inc": bson.M{"slots.$.remaining": 1, "slots.$.booked": -1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to restore slot: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	found, err := r.slotExists(ctx, ref, t)
	if err != nil {
		return err
	}
	if !found {
		return availabilityerrors.ErrBucketNotFound
	}
	return availabilityerrors.ErrSlotFull
}

func (r *mongoAvailabilityRepository) GetDay(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
	days, err := r.ListDays(ctx, restaurantID, date, date)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return &model.AvailabilityDay{RestaurantID: restaurantID, Date: date, Buckets: []model.SizeBucket{}}, nil
	}
	return &days[0], nil
}

func (r *mongoAvailabilityRepository) ListDays(ctx context.Context, restaurantID string, from, to civil.Date) ([]model.AvailabilityDay, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"restaurant_id": restaurantID,
		"date":          bson.M{"$gte": from.String(), "$lte": to.String()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "table_size", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []model.SizeBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}
	return GroupByDay(restaurantID, buckets), nil
}

// MergeDays reads the stored range, lets merge decide the new content and
// replaces the returned dates, all in one transaction. A booking that lands
// on a bucket between the read and the write aborts the transaction with a
// write conflict and the driver reruns it against the new state.
func (r *mongoAvailabilityRepository) MergeDays(ctx context.Context, restaurantID string, from, to civil.Date, merge MergeFunc) ([]civil.Date, error) {
	var written []civil.Date

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := r.ListDays(sessCtx, restaurantID, from, to)
		if err != nil {
			return err
		}

		days := merge(existing)
		written = written[:0]
		if len(days) == 0 {
			return nil
		}

		dates := make([]string, 0, len(days))
		docs := make([]any, 0, len(days)*4)
		now := time.Now().UTC().Truncate(time.Millisecond)
		for _, day := range days {
			dates = append(dates, day.Date.String())
			written = append(written, day.Date)
			for _, b := range day.Buckets {
				b.RestaurantID = restaurantID
				b.Date = day.Date
				b.UpdatedAt = now
				docs = append(docs, b)
			}
		}

		if _, err := r.collection.DeleteMany(sessCtx, bson.M{
			"restaurant_id": restaurantID,
			"date":          bson.M{"$in": dates},
		}); err != nil {
			return fmt.Errorf("failed to clear availability: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := r.collection.InsertMany(sessCtx, docs); err != nil {
			return fmt.Errorf("failed to write availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

func (r *mongoAvailabilityRepository) DeleteBefore(ctx context.Context, date civil.Date) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"date": bson.M{"$lt": date.String()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete past availability: %w", err)
	}
	return result.DeletedCount, nil
}

// GroupByDay folds buckets sorted by date into days.
func GroupByDay(restaurantID string, buckets []model.SizeBucket) []model.AvailabilityDay {
	var days []model.AvailabilityDay
	for _, b := range buckets {
		if n := len(days); n == 0 || days[n-1].Date != b.Date {
			days = append(days, model.AvailabilityDay{RestaurantID: restaurantID, Date: b.Date})
		}
		days[len(days)-1].Buckets = append(days[len(days)-1].Buckets, b)
	}
	return days
}
