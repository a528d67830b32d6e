package model

import (
	"sort"
	"time"

	"booktable/pkg/civil"
)

// BucketRef identifies one size bucket of one restaurant on one day.
type BucketRef struct {
	RestaurantID string     `json:"restaurant_id" bson:"restaurant_id"`
	Date         civil.Date `json:"date" bson:"date"`
	TableSize    int        `json:"table_size" bson:"table_size"`
}

// Slot counts the tables of a bucket at one time. Remaining+Booked always
// equals the bucket capacity; a slot is available while Remaining > 0.
type Slot struct {
	Time      string `json:"time" bson:"time"`
	Remaining int    `json:"remaining" bson:"remaining"`
	Booked    int    `json:"booked" bson:"booked"`
}

// SizeBucket is the availability of one table size on one day. Slots are
// sorted by time and a time appears at most once.
type SizeBucket struct {
	RestaurantID string     `json:"restaurant_id" bson:"restaurant_id"`
	Date         civil.Date `json:"date" bson:"date"`
	TableSize    int        `json:"table_size" bson:"table_size"`
	Capacity     int        `json:"capacity" bson:"capacity"`
	Slots        []Slot     `json:"slots" bson:"slots"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}

func (b *SizeBucket) Ref() BucketRef {
	return BucketRef{RestaurantID: b.RestaurantID, Date: b.Date, TableSize: b.TableSize}
}

func (b *SizeBucket) slot(t string) *Slot {
	i := sort.Search(len(b.Slots), func(i int) bool { return b.Slots[i].Time >= t })
	if i < len(b.Slots) && b.Slots[i].Time == t {
		return &b.Slots[i]
	}
	return nil
}

// Slot returns the slot at t, or nil if the bucket has no such time.
func (b *SizeBucket) Slot(t civil.TimeOfDay) *Slot {
	return b.slot(t.String())
}

func (b *SizeBucket) IsAvailable(t civil.TimeOfDay) bool {
	s := b.Slot(t)
	return s != nil && s.Remaining > 0
}

// AvailableTimes returns the times with at least one free table, ascending.
func (b *SizeBucket) AvailableTimes() []string {
	times := make([]string, 0, len(b.Slots))
	for _, s := range b.Slots {
		if s.Remaining > 0 {
			times = append(times, s.Time)
		}
	}
	return times
}

// HasTimeWithin reports whether any available time lies within tolerance of center.
func (b *SizeBucket) HasTimeWithin(center civil.TimeOfDay, tolerance time.Duration) bool {
	for _, s := range b.Slots {
		if s.Remaining <= 0 {
			continue
		}
		t, err := civil.ParseTime(s.Time)
		if err != nil {
			continue
		}
		if t.Within(center, tolerance) {
			return true
		}
	}
	return false
}

func (b *SizeBucket) Clone() SizeBucket {
	c := *b
	c.Slots = append([]Slot(nil), b.Slots...)
	return c
}

type AvailabilityDay struct {
	RestaurantID string       `json:"restaurant_id"`
	Date         civil.Date   `json:"date"`
	Buckets      []SizeBucket `json:"buckets"`
}

type TableAvailability struct {
	TableSize      int      `json:"table_size"`
	AvailableTimes []string `json:"available_times"`
}

// DayView is the public shape of a day: sizes ascending, free times only.
type DayView struct {
	RestaurantID string              `json:"restaurant_id"`
	Date         civil.Date          `json:"date"`
	Tables       []TableAvailability `json:"tables"`
}

func (d *AvailabilityDay) View() DayView {
	view := DayView{RestaurantID: d.RestaurantID, Date: d.Date, Tables: make([]TableAvailability, 0, len(d.Buckets))}
	for i := range d.Buckets {
		view.Tables = append(view.Tables, TableAvailability{
			TableSize:      d.Buckets[i].TableSize,
			AvailableTimes: d.Buckets[i].AvailableTimes(),
		})
	}
	sort.Slice(view.Tables, func(i, j int) bool { return view.Tables[i].TableSize < view.Tables[j].TableSize })
	return view
}
