// Package availabilitytest provides an in-memory AvailabilityRepository with
// the same matching and counting rules as the Mongo one.
package availabilitytest

import (
	"context"
	"sort"
	"sync"
	"time"

	availabilityerrors "booktable/internal/availability/errors"
	"booktable/internal/availability/repository"
	"booktable/pkg/civil"
	"booktable/pkg/model"
)

type Store struct {
	mu      sync.Mutex
	buckets map[model.BucketRef]*model.SizeBucket

	// RemoveSlotHook runs before every RemoveSlot when set; a non-nil error is
	// returned as is.
	RemoveSlotHook func(ref model.BucketRef, t civil.TimeOfDay) error
}

var _ repository.AvailabilityRepository = (*Store)(nil)

func NewStore() *Store {
	return &Store{buckets: make(map[model.BucketRef]*model.SizeBucket)}
}

// Seed stores the days as they are, replacing existing buckets.
func (s *Store) Seed(days ...model.AvailabilityDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, day := range days {
		for _, b := range day.Buckets {
			b := b.Clone()
			b.RestaurantID = day.RestaurantID
			b.Date = day.Date
			s.buckets[b.Ref()] = &b
		}
	}
}

// Bucket returns a copy of the stored bucket.
func (s *Store) Bucket(ref model.BucketRef) (model.SizeBucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[ref]
	if !ok {
		return model.SizeBucket{}, false
	}
	return b.Clone(), true
}

// sorted returns matching buckets ordered by date then table size. Callers
// hold the lock.
func (s *Store) sorted(match func(b *model.SizeBucket) bool) []*model.SizeBucket {
	var out []*model.SizeBucket
	for _, b := range s.buckets {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TableSize < out[j].TableSize
	})
	return out
}

func hasFreeTime(b *model.SizeBucket, lo, hi string) bool {
	for _, slot := range b.Slots {
		if slot.Remaining > 0 && slot.Time >= lo && slot.Time <= hi {
			return true
		}
	}
	return false
}

func window(t civil.TimeOfDay, tolerance time.Duration) (string, string) {
	tol := int(tolerance / time.Minute)
	lo := max(t.Minutes()-tol, 0)
	hi := min(t.Minutes()+tol, civil.MinutesPerDay-1)
	return civil.TimeFromMinutes(lo).String(), civil.TimeFromMinutes(hi).String()
}

func (s *Store) findSmallest(restaurantID string, date civil.Date, minSize int, lo, hi string) (*model.SizeBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := s.sorted(func(b *model.SizeBucket) bool {
		return b.RestaurantID == restaurantID && b.Date == date && b.TableSize >= minSize && hasFreeTime(b, lo, hi)
	})
	if len(found) == 0 {
		return nil, availabilityerrors.ErrNoBucket
	}
	b := found[0].Clone()
	return &b, nil
}

func (s *Store) FindExact(_ context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay) (*model.SizeBucket, error) {
	return s.findSmallest(restaurantID, date, minSize, t.String(), t.String())
}

func (s *Store) FindNearest(_ context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay, tolerance time.Duration) (*model.SizeBucket, error) {
	lo, hi := window(t, tolerance)
	return s.findSmallest(restaurantID, date, minSize, lo, hi)
}

func (s *Store) RestaurantsWithAvailability(_ context.Context, restaurantIDs []string, date civil.Date, minSize int, t civil.TimeOfDay, tolerance time.Duration) ([]string, error) {
	lo, hi := window(t, tolerance)
	wanted := make(map[string]bool, len(restaurantIDs))
	for _, id := range restaurantIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	ids := []string{}
	for _, b := range s.sorted(func(b *model.SizeBucket) bool {
		return wanted[b.RestaurantID] && b.Date == date && b.TableSize >= minSize && hasFreeTime(b, lo, hi)
	}) {
		if !seen[b.RestaurantID] {
			seen[b.RestaurantID] = true
			ids = append(ids, b.RestaurantID)
		}
	}
	return ids, nil
}

func (s *Store) RemoveSlot(_ context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	if s.RemoveSlotHook != nil {
		if err := s.RemoveSlotHook(ref, t); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[ref]
	if !ok {
		return availabilityerrors.ErrBucketNotFound
	}
	slot := b.Slot(t)
	if slot == nil {
		return availabilityerrors.ErrBucketNotFound
	}
	if slot.Remaining < 1 {
		return availabilityerrors.ErrSlotTaken
	}
	slot.Remaining--
	slot.Booked++
	return nil
}

func (s *Store) RestoreSlot(_ context.Context, ref model.BucketRef, t civil.TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[ref]
	if !ok {
		return availabilityerrors.ErrBucketNotFound
	}
	slot := b.Slot(t)
	if slot == nil {
		return availabilityerrors.ErrBucketNotFound
	}
	if slot.Booked < 1 {
		return availabilityerrors.ErrSlotFull
	}
	slot.Remaining++
	slot.Booked--
	return nil
}

func (s *Store) GetDay(ctx context.Context, restaurantID string, date civil.Date) (*model.AvailabilityDay, error) {
	days, _ := s.ListDays(ctx, restaurantID, date, date)
	if len(days) == 0 {
		return &model.AvailabilityDay{RestaurantID: restaurantID, Date: date, Buckets: []model.SizeBucket{}}, nil
	}
	return &days[0], nil
}

func (s *Store) ListDays(_ context.Context, restaurantID string, from, to civil.Date) ([]model.AvailabilityDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDays(restaurantID, from, to), nil
}

func (s *Store) listDays(restaurantID string, from, to civil.Date) []model.AvailabilityDay {
	found := s.sorted(func(b *model.SizeBucket) bool {
		return b.RestaurantID == restaurantID && !b.Date.Before(from) && !b.Date.After(to)
	})
	buckets := make([]model.SizeBucket, 0, len(found))
	for _, b := range found {
		buckets = append(buckets, b.Clone())
	}
	return repository.GroupByDay(restaurantID, buckets)
}

// MergeDays holds the lock across read, merge and write.
func (s *Store) MergeDays(_ context.Context, restaurantID string, from, to civil.Date, merge repository.MergeFunc) ([]civil.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	days := merge(s.listDays(restaurantID, from, to))
	written := make([]civil.Date, 0, len(days))
	for _, day := range days {
		for ref := range s.buckets {
			if ref.RestaurantID == restaurantID && ref.Date == day.Date {
				delete(s.buckets, ref)
			}
		}
		for _, b := range day.Buckets {
			b := b.Clone()
			b.RestaurantID = restaurantID
			b.Date = day.Date
			s.buckets[b.Ref()] = &b
		}
		written = append(written, day.Date)
	}
	return written, nil
}

func (s *Store) DeleteBefore(_ context.Context, date civil.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for ref := range s.buckets {
		if ref.Date.Before(date) {
			delete(s.buckets, ref)
			n++
		}
	}
	return n, nil
}
