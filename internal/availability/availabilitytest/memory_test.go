package availabilitytest

import (
	"context"
	"testing"
	"time"

	availabilityerrors "booktable/internal/availability/errors"
	"booktable/pkg/civil"
	"booktable/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = civil.Date{Year: 2026, Month: time.October, Day: 18}

func seeded() *Store {
	s := NewStore()
	s.Seed(model.AvailabilityDay{
		RestaurantID: "r1",
		Date:         today,
		Buckets: []model.SizeBucket{
			{TableSize: 2, Capacity: 1, Slots: []model.Slot{{Time: "18:00", Remaining: 1}}},
			{TableSize: 4, Capacity: 2, Slots: []model.Slot{{Time: "18:00", Remaining: 2}, {Time: "18:30", Remaining: 2}}},
		},
	})
	return s
}

func TestStore_FindExactPrefersSmallestFit(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	b, err := s.FindExact(ctx, "r1", today, 2, civil.TimeOfDay{Hour: 18})
	require.NoError(t, err)
	assert.Equal(t, 2, b.TableSize)

	b, err = s.FindExact(ctx, "r1", today, 3, civil.TimeOfDay{Hour: 18})
	require.NoError(t, err)
	assert.Equal(t, 4, b.TableSize)

	_, err = s.FindExact(ctx, "r1", today, 5, civil.TimeOfDay{Hour: 18})
	assert.ErrorIs(t, err, availabilityerrors.ErrNoBucket)
}

func TestStore_RemoveAndRestoreKeepCounts(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	ref := model.BucketRef{RestaurantID: "r1", Date: today, TableSize: 2}
	at := civil.TimeOfDay{Hour: 18}

	require.NoError(t, s.RemoveSlot(ctx, ref, at))
	assert.ErrorIs(t, s.RemoveSlot(ctx, ref, at), availabilityerrors.ErrSlotTaken)
	assert.ErrorIs(t, s.RemoveSlot(ctx, ref, civil.TimeOfDay{Hour: 9}), availabilityerrors.ErrBucketNotFound)

	require.NoError(t, s.RestoreSlot(ctx, ref, at))
	assert.ErrorIs(t, s.RestoreSlot(ctx, ref, at), availabilityerrors.ErrSlotFull)
	assert.ErrorIs(t, s.RestoreSlot(ctx, ref, civil.TimeOfDay{Hour: 9}), availabilityerrors.ErrBucketNotFound)

	b, ok := s.Bucket(ref)
	require.True(t, ok)
	assert.Equal(t, model.Slot{Time: "18:00", Remaining: 1, Booked: 0}, b.Slots[0])
}

func TestStore_GetDayEmpty(t *testing.T) {
	day, err := NewStore().GetDay(context.Background(), "r1", today)
	require.NoError(t, err)
	assert.Empty(t, day.Buckets)
	assert.Equal(t, today, day.Date)
}

func TestStore_DeleteBefore(t *testing.T) {
	s := seeded()
	s.Seed(model.AvailabilityDay{RestaurantID: "r1", Date: today.AddDays(1), Buckets: []model.SizeBucket{{TableSize: 2}}})

	n, err := s.DeleteBefore(context.Background(), today.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	days, _ := s.ListDays(context.Background(), "r1", today, today.AddDays(5))
	require.Len(t, days, 1)
	assert.Equal(t, today.AddDays(1), days[0].Date)
}
