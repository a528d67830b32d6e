package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"booktable/pkg/civil"
	"booktable/pkg/logger"
	"booktable/pkg/model"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAvailabilityRepository struct {
	AvailabilityRepository
	getDayFunc     func(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error)
	removeSlotFunc func(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error
	mergeDaysFunc  func(ctx context.Context, restaurantID string, from, to civil.Date, merge MergeFunc) ([]civil.Date, error)
	getDayCalls    int
}

func (s *stubAvailabilityRepository) GetDay(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
	s.getDayCalls++
	return s.getDayFunc(ctx, restaurantID, date)
}

func (s *stubAvailabilityRepository) RemoveSlot(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	return s.removeSlotFunc(ctx, ref, t)
}

func (s *stubAvailabilityRepository) MergeDays(ctx context.Context, restaurantID string, from, to civil.Date, merge MergeFunc) ([]civil.Date, error) {
	return s.mergeDaysFunc(ctx, restaurantID, from, to, merge)
}

var cacheDay = civil.Date{Year: 2026, Month: time.October, Day: 18}

func sampleDay() *model.AvailabilityDay {
	return &model.AvailabilityDay{
		RestaurantID: "r1",
		Date:         cacheDay,
		Buckets: []model.SizeBucket{{
			RestaurantID: "r1",
			Date:         cacheDay,
			TableSize:    4,
			Capacity:     1,
			Slots:        []model.Slot{{Time: "18:00", Remaining: 1}},
		}},
	}
}

func TestCachedGetDay_MissLoadsAndStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	stub := &stubAvailabilityRepository{
		getDayFunc: func(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
			return sampleDay(), nil
		},
	}
	repo := NewCachedAvailabilityRepository(stub, rdb, time.Minute, logger.Discard())

	payload, err := json.Marshal(sampleDay())
	require.NoError(t, err)
	key := DayCacheKey("r1", cacheDay, 0)
	mock.ExpectGet(DayVersionKey("r1", cacheDay)).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(payload), time.Minute).SetVal("OK")

	day, err := repo.GetDay(context.Background(), "r1", cacheDay)
	require.NoError(t, err)
	assert.Equal(t, []string{"18:00"}, day.Buckets[0].AvailableTimes())
	assert.Equal(t, 1, stub.getDayCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGetDay_HitSkipsStore(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	stub := &stubAvailabilityRepository{}
	repo := NewCachedAvailabilityRepository(stub, rdb, time.Minute, logger.Discard())

	payload, err := json.Marshal(sampleDay())
	require.NoError(t, err)
	mock.ExpectGet(DayVersionKey("r1", cacheDay)).SetVal("3")
	mock.ExpectGet(DayCacheKey("r1", cacheDay, 3)).SetVal(string(payload))

	day, err := repo.GetDay(context.Background(), "r1", cacheDay)
	require.NoError(t, err)
	assert.Equal(t, cacheDay, day.Date)
	assert.Equal(t, 4, day.Buckets[0].TableSize)
	assert.Equal(t, 0, stub.getDayCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedGetDay_RedisErrorFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	stub := &stubAvailabilityRepository{
		getDayFunc: func(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
			return sampleDay(), nil
		},
	}
	repo := NewCachedAvailabilityRepository(stub, rdb, time.Minute, logger.Discard())

	mock.ExpectGet(DayVersionKey("r1", cacheDay)).SetErr(errors.New("connection refused"))

	day, err := repo.GetDay(context.Background(), "r1", cacheDay)
	require.NoError(t, err)
	assert.Equal(t, "r1", day.RestaurantID)
	assert.Equal(t, 1, stub.getDayCalls)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing is stored without a known version")
}

func TestCachedGetDay_WriteDuringLoadIsNotServedStale(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ref := model.BucketRef{RestaurantID: "r1", Date: cacheDay, TableSize: 4}
	before := sampleDay()
	after := sampleDay()
	after.Buckets[0].Slots[0] = model.Slot{Time: "18:00", Remaining: 0, Booked: 1}

	var repo AvailabilityRepository
	stub := &stubAvailabilityRepository{
		removeSlotFunc: func(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
			return nil
		},
	}
	stub.getDayFunc = func(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
		if stub.getDayCalls == 1 {
			// A booking commits after this read saw the table as free.
			require.NoError(t, repo.RemoveSlot(ctx, ref, civil.TimeOfDay{Hour: 18}))
			return before, nil
		}
		return after, nil
	}
	repo = NewCachedAvailabilityRepository(stub, rdb, time.Minute, logger.Discard())

	stalePayload, _ := json.Marshal(before)
	freshPayload, _ := json.Marshal(after)
	versionKey := DayVersionKey("r1", cacheDay)

	mock.ExpectGet(versionKey).RedisNil()
	mock.ExpectGet(DayCacheKey("r1", cacheDay, 0)).RedisNil()
	mock.ExpectIncr(versionKey).SetVal(1)
	mock.ExpectExpire(versionKey, VersionTTL(time.Minute)).SetVal(true)
	mock.ExpectSet(DayCacheKey("r1", cacheDay, 0), string(stalePayload), time.Minute).SetVal("OK")

	mock.ExpectGet(versionKey).SetVal("1")
	mock.ExpectGet(DayCacheKey("r1", cacheDay, 1)).RedisNil()
	mock.ExpectSet(DayCacheKey("r1", cacheDay, 1), string(freshPayload), time.Minute).SetVal("OK")

	_, err := repo.GetDay(context.Background(), "r1", cacheDay)
	require.NoError(t, err)

	day, err := repo.GetDay(context.Background(), "r1", cacheDay)
	require.NoError(t, err)
	assert.Empty(t, day.Buckets[0].AvailableTimes())
	assert.Equal(t, 2, stub.getDayCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRemoveSlot_InvalidatesOnlyOnSuccess(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	taken := false
	stub := &stubAvailabilityRepository{
		removeSlotFunc: func(ctx context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
			if taken {
				return errors.New("slot already taken")
			}
			taken = true
			return nil
		},
	}
	repo := NewCachedAvailabilityRepository(stub, rdb, time.Minute, logger.Discard())
	ref := model.BucketRef{RestaurantID: "r1", Date: cacheDay, TableSize: 4}

	versionKey := DayVersionKey("r1", cacheDay)
	mock.ExpectIncr(versionKey).SetVal(1)
	mock.ExpectExpire(versionKey, VersionTTL(time.Minute)).SetVal(true)
	require.NoError(t, repo.RemoveSlot(context.Background(), ref, civil.TimeOfDay{Hour: 18}))

	require.Error(t, repo.RemoveSlot(context.Background(), ref, civil.TimeOfDay{Hour: 18}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedMergeDays_InvalidatesWrittenDates(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := cacheDay.AddDays(1)
	stub := &stubAvailabilityRepository{
		mergeDaysFunc: func(ctx context.Context, restaurantID string, from, to civil.Date, merge MergeFunc) ([]civil.Date, error) {
			return []civil.Date{cacheDay, next}, nil
		},
	}
	repo := NewCachedAvailabilityRepository(stub, rdb, time.Minute, logger.Discard())

	for _, d := range []civil.Date{cacheDay, next} {
		mock.ExpectIncr(DayVersionKey("r1", d)).SetVal(4)
		mock.ExpectExpire(DayVersionKey("r1", d), VersionTTL(time.Minute)).SetVal(true)
	}

	written, err := repo.MergeDays(context.Background(), "r1", cacheDay, next, nil)
	require.NoError(t, err)
	assert.Len(t, written, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionTTL_OutlivesEntries(t *testing.T) {
	assert.Equal(t, 24*time.Hour, VersionTTL(5*time.Minute))
	assert.Equal(t, 96*time.Hour, VersionTTL(48*time.Hour))
}

func TestNewCachedAvailabilityRepository_NilClientIsPassthrough(t *testing.T) {
	stub := &stubAvailabilityRepository{}
	assert.Same(t, stub, NewCachedAvailabilityRepository(stub, nil, time.Minute, logger.Discard()))
}

func TestTimeWindow_ClampsToDay(t *testing.T) {
	lo, hi := timeWindow(civil.TimeOfDay{Hour: 0, Minute: 10}, 30*time.Minute)
	assert.Equal(t, "00:00", lo)
	assert.Equal(t, "00:40", hi)

	lo, hi = timeWindow(civil.TimeOfDay{Hour: 23, Minute: 50}, 30*time.Minute)
	assert.Equal(t, "23:20", lo)
	assert.Equal(t, "23:59", hi)
}

func TestGroupByDay(t *testing.T) {
	next := cacheDay.AddDays(1)
	buckets := []model.SizeBucket{
		{Date: cacheDay, TableSize: 2},
		{Date: cacheDay, TableSize: 4},
		{Date: next, TableSize: 2},
	}

	days := GroupByDay("r1", buckets)
	require.Len(t, days, 2)
	assert.Len(t, days[0].Buckets, 2)
	assert.Equal(t, next, days[1].Date)
	assert.Equal(t, "r1", days[1].RestaurantID)
}
