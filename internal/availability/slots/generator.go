// Package slots derives bookable days from a restaurant's opening hours and
// table inventory.
package slots

import (
	"errors"
	"fmt"
	"sort"

	"booktable/pkg/civil"
	"booktable/pkg/config"
	"booktable/pkg/model"
)

var (
	ErrInvalidHours    = errors.New("invalid opening hours")
	ErrEmptyInventory  = errors.New("restaurant has no tables")
	ErrInvalidInterval = errors.New("slot interval must be positive")
)

type Generator struct {
	intervalMinutes int
	capacityMode    string
}

func NewGenerator(intervalMinutes int, capacityMode string) *Generator {
	return &Generator{
		intervalMinutes: intervalMinutes,
		capacityMode:    capacityMode,
	}
}

func NewGeneratorFromConfig(cfg *config.Config) *Generator {
	return NewGenerator(cfg.SlotIntervalMinutes, cfg.SlotCapacityMode)
}

// Times lists the slot start times for one day, sorted as strings. Times run
// from opening (inclusive) to closing (exclusive); when closing is not after
// opening the range continues past midnight and the early-morning times
// belong to the same day.
func (g *Generator) Times(hours model.OpeningHours) ([]string, error) {
	if g.intervalMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	opening, err := civil.ParseTime(hours.Opening)
	if err != nil {
		return nil, fmt.Errorf("%w: opening: %v", ErrInvalidHours, err)
	}
	closing, err := civil.ParseTime(hours.Closing)
	if err != nil {
		return nil, fmt.Errorf("%w: closing: %v", ErrInvalidHours, err)
	}

	start, end := opening.Minutes(), closing.Minutes()
	if end <= start {
		end += civil.MinutesPerDay
	}

	times := make([]string, 0, (end-start)/g.intervalMinutes+1)
	for m := start; m < end; m += g.intervalMinutes {
		times = append(times, civil.TimeFromMinutes(m).String())
	}
	sort.Strings(times)
	return times, nil
}

// capacities sums the inventory per table size.
func (g *Generator) capacities(tables []model.TableInventory) map[int]int {
	out := make(map[int]int, len(tables))
	for _, t := range tables {
		if t.TableSize <= 0 || t.Count <= 0 {
			continue
		}
		out[t.TableSize] += t.Count
	}
	if g.capacityMode == config.SlotCapacitySingle {
		for size := range out {
			out[size] = 1
		}
	}
	return out
}

// Generate builds numDays consecutive days starting at from. The output is a
// pure function of its inputs: buckets are ordered by table size and slots
// by time.
func (g *Generator) Generate(r *model.Restaurant, from civil.Date, numDays int) ([]model.AvailabilityDay, error) {
	times, err := g.Times(r.Hours)
	if err != nil {
		return nil, err
	}
	capacities := g.capacities(r.Tables)
	if len(capacities) == 0 {
		return nil, ErrEmptyInventory
	}

	sizes := make([]int, 0, len(capacities))
	for size := range capacities {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)

	days := make([]model.AvailabilityDay, 0, numDays)
	for i := 0; i < numDays; i++ {
		date := from.AddDays(i)
		day := model.AvailabilityDay{RestaurantID: r.ID, Date: date, Buckets: make([]model.SizeBucket, 0, len(sizes))}
		for _, size := range sizes {
			capacity := capacities[size]
			bucket := model.SizeBucket{
				RestaurantID: r.ID,
				Date:         date,
				TableSize:    size,
				Capacity:     capacity,
				Slots:        make([]model.Slot, len(times)),
			}
			for j, t := range times {
				bucket.Slots[j] = model.Slot{Time: t, Remaining: capacity}
			}
			day.Buckets = append(day.Buckets, bucket)
		}
		days = append(days, day)
	}
	return days, nil
}

// Merge reconciles a freshly generated window with what is stored.
//
// Dates before today+overrideDays take the fresh template, with the booked
// count of every time that survives carried over so that a held table is not
// offered again. Later dates keep the stored day untouched when there is one.
// Dates that only exist in the stored window are not returned and so are not
// rewritten.
func Merge(existing, fresh []model.AvailabilityDay, today civil.Date, overrideDays int) []model.AvailabilityDay {
	stored := make(map[civil.Date]*model.AvailabilityDay, len(existing))
	for i := range existing {
		stored[existing[i].Date] = &existing[i]
	}

	cutoff := today.AddDays(overrideDays)
	merged := make([]model.AvailabilityDay, 0, len(fresh))
	for _, day := range fresh {
		old, ok := stored[day.Date]
		switch {
		case !ok:
			merged = append(merged, day)
		case day.Date.Before(cutoff):
			merged = append(merged, carryBookings(day, old))
		default:
			merged = append(merged, *old)
		}
	}
	return merged
}

func carryBookings(fresh model.AvailabilityDay, old *model.AvailabilityDay) model.AvailabilityDay {
	booked := make(map[int]map[string]int, len(old.Buckets))
	for _, b := range old.Buckets {
		perTime := make(map[string]int, len(b.Slots))
		for _, s := range b.Slots {
			if s.Booked > 0 {
				perTime[s.Time] = s.Booked
			}
		}
		booked[b.TableSize] = perTime
	}

	out := fresh
	out.Buckets = make([]model.SizeBucket, len(fresh.Buckets))
	for i, b := range fresh.Buckets {
		nb := b.Clone()
		for j := range nb.Slots {
			held := min(booked[nb.TableSize][nb.Slots[j].Time], nb.Capacity)
			nb.Slots[j].Booked = held
			nb.Slots[j].Remaining = nb.Capacity - held
		}
		out.Buckets[i] = nb
	}
	return out
}
