package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	availabilityerrors "booktable/internal/availability/errors"
	"booktable/internal/availability/availabilitytest"
	"booktable/internal/availability/slots"
	bookingserrors "booktable/internal/bookings/errors"
	"booktable/internal/bookings/validator"
	"booktable/internal/events"
	restauranterrors "booktable/internal/restaurants/errors"
	"booktable/pkg/auth"
	"booktable/pkg/civil"
	"booktable/pkg/config"
	apperrors "booktable/pkg/errors"
	"booktable/pkg/kafka"
	"booktable/pkg/logger"
	"booktable/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	restaurantID = "650000000000000000000001"
	managerID    = "manager-1"
)

var (
	dayD     = civil.Date{Year: 2026, Month: time.October, Day: 20}
	fixedNow = time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

	diner   = auth.Principal{UserID: "user-1", Role: auth.RoleUser, Email: "diner@example.com"}
	other   = auth.Principal{UserID: "user-2", Role: auth.RoleUser}
	admin   = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	manager = auth.Principal{UserID: managerID, Role: auth.RoleManager}
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

// mockBookingRepository keeps bookings in memory unless a func field
// overrides the call.
type mockBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	nextID   int

	createFunc func(ctx context.Context, b *model.Booking) error
	cancelFunc func(ctx context.Context, id string, at time.Time) (*model.Booking, error)
	countFunc  func(ctx context.Context) (int64, error)
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (m *mockBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = fmt.Sprintf("%024x", m.nextID)
	b.CreatedAt = fixedNow
	stored := *b
	m.bookings[b.ID] = &stored
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	c := *b
	return &c, nil
}

func (m *mockBookingRepository) Cancel(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	if b.Status != model.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotConfirmed, id)
	}
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	c := *b
	return &c, nil
}

func (m *mockBookingRepository) filter(match func(b *model.Booking) bool) []*model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if match(b) {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

func (m *mockBookingRepository) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	return m.filter(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return int64(len(m.filter(func(b *model.Booking) bool { return b.UserID == userID }))), nil
}

func (m *mockBookingRepository) ListByRestaurant(ctx context.Context, restaurantID string, limit int, offset int64) ([]*model.Booking, error) {
	return m.filter(func(b *model.Booking) bool { return b.RestaurantID == restaurantID }), nil
}

func (m *mockBookingRepository) CountByRestaurant(ctx context.Context, restaurantID string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return int64(len(m.filter(func(b *model.Booking) bool { return b.RestaurantID == restaurantID }))), nil
}

type mockRestaurantLookup struct {
	calls        atomic.Int32
	findByIDFunc func(ctx context.Context, id string) (*model.Restaurant, error)
}

func (m *mockRestaurantLookup) FindByID(ctx context.Context, id string) (*model.Restaurant, error) {
	m.calls.Add(1)
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	if id != restaurantID {
		return nil, fmt.Errorf("%w: %s", restauranterrors.ErrNotFound, id)
	}
	r := bistro()
	return r, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func (e *recordingEmitter) Emit(ctx context.Context, event model.BookingEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) emitted() []model.BookingEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.BookingEvent(nil), e.events...)
}

// countingStore counts availability lookups.
type countingStore struct {
	*availabilitytest.Store
	finds atomic.Int32
}

func (c *countingStore) FindExact(ctx context.Context, restaurantID string, date civil.Date, minSize int, t civil.TimeOfDay) (*model.SizeBucket, error) {
	c.finds.Add(1)
	return c.Store.FindExact(ctx, restaurantID, date, minSize, t)
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

func bistro() *model.Restaurant {
	return &model.Restaurant{
		ID:         restaurantID,
		Name:       "Bistro",
		Hours:      model.OpeningHours{Opening: "17:00", Closing: "19:00"},
		Tables:     []model.TableInventory{{TableSize: 4, Count: 1}},
		ManagerID:  managerID,
		IsApproved: true,
	}
}

type fixture struct {
	svc         BookingService
	repo        *mockBookingRepository
	store       *countingStore
	restaurants *mockRestaurantLookup
	emitter     *recordingEmitter
}

func newFixture(t *testing.T, mode string, r *model.Restaurant) *fixture {
	t.Helper()

	store := &countingStore{Store: availabilitytest.NewStore()}
	days, err := slots.NewGenerator(30, mode).Generate(r, dayD, 1)
	require.NoError(t, err)
	store.Seed(days...)

	f := &fixture{
		repo:        newMockBookingRepository(),
		store:       store,
		restaurants: &mockRestaurantLookup{},
		emitter:     &recordingEmitter{},
	}
	cfg := &config.Config{BookingMaxRetries: 1, Log: logger.Discard()}
	svc := NewBookingService(f.repo, f.store, f.restaurants, f.emitter, validator.NewBookingValidator(cfg.Log), cfg)
	svc.(*bookingService).now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func request(tm string, partySize int) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		RestaurantID: restaurantID,
		Date:         dayD.String(),
		Time:         tm,
		PartySize:    partySize,
	}
}

func (f *fixture) availableTimes(t *testing.T, tableSize int) []string {
	t.Helper()
	b, ok := f.store.Bucket(model.BucketRef{RestaurantID: restaurantID, Date: dayD, TableSize: tableSize})
	require.True(t, ok)
	return b.AvailableTimes()
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestBookingService_Scenarios(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()
	before, _ := f.store.Bucket(model.BucketRef{RestaurantID: restaurantID, Date: dayD, TableSize: 4})

	// A: a party of 2 gets the size-4 table at 18:00.
	booking, err := f.svc.Create(ctx, diner, request("18:00", 2))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, 4, booking.TableSize)
	assert.Equal(t, dayD, booking.Date)
	assert.Equal(t, "diner@example.com", booking.UserEmail)
	assert.Equal(t, []string{"17:00", "17:30", "18:30"}, f.availableTimes(t, 4))

	// B: the same time is gone.
	_, err = f.svc.Create(ctx, other, request("18:00", 2))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability))

	// C: cancelling restores the bucket exactly.
	cancelled, err := f.svc.Cancel(ctx, diner, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	after, _ := f.store.Bucket(model.BucketRef{RestaurantID: restaurantID, Date: dayD, TableSize: 4})
	assert.Equal(t, before.Slots, after.Slots)

	events := f.emitter.emitted()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventBookingConfirmed, events[0].Type)
	assert.Equal(t, "Bistro", events[0].RestaurantName)
	assert.Equal(t, booking.ID, events[0].Booking.ID)
	assert.Equal(t, model.EventBookingCancelled, events[1].Type)
	assert.Equal(t, diner.UserID, events[1].ActorID)
}

func TestBookingService_Create_InvalidPartySizeTouchesNothing(t *testing.T) {
	for _, size := range []int{0, -3, validator.MaxPartySize + 1} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			f := newFixture(t, config.SlotCapacityMultiset, bistro())

			_, err := f.svc.Create(context.Background(), diner, request("18:00", size))
			require.Error(t, err)
			appErr := apperrors.AsAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code)
			assert.Equal(t, "party_size", appErr.Details["field"])

			assert.Zero(t, f.store.finds.Load())
			assert.Zero(t, f.restaurants.calls.Load())
			assert.Len(t, f.availableTimes(t, 4), 4)
		})
	}
}

func TestBookingService_Create_InvalidRequest(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(r *model.CreateBookingRequest)
		field string
	}{
		{"malformed date", func(r *model.CreateBookingRequest) { r.Date = "20/10/2026" }, "date"},
		{"malformed time", func(r *model.CreateBookingRequest) { r.Time = "6pm" }, "time"},
		{"bad restaurant id", func(r *model.CreateBookingRequest) { r.RestaurantID = "bistro" }, "restaurant_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.SlotCapacityMultiset, bistro())
			req := request("18:00", 2)
			tt.mut(req)

			_, err := f.svc.Create(context.Background(), diner, req)
			appErr := apperrors.AsAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Zero(t, f.store.finds.Load())
		})
	}
}

func TestBookingService_Create_RestaurantNotFound(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	req := request("18:00", 2)
	req.RestaurantID = "650000000000000000000099"

	_, err := f.svc.Create(context.Background(), diner, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Zero(t, f.store.finds.Load())
}

func TestBookingService_Create_NoSuitableTable(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()

	_, err := f.svc.Create(ctx, diner, request("18:00", 5))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability), "party larger than any table")

	_, err = f.svc.Create(ctx, diner, request("18:10", 2))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability), "no tolerance on the write path")

	req := request("18:00", 2)
	req.Date = dayD.AddDays(1).String()
	_, err = f.svc.Create(ctx, diner, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability), "day not generated")
}

func TestBookingService_Create_PicksSmallestFittingTable(t *testing.T) {
	r := bistro()
	r.Tables = []model.TableInventory{{TableSize: 6, Count: 1}, {TableSize: 2, Count: 1}, {TableSize: 4, Count: 1}}
	f := newFixture(t, config.SlotCapacityMultiset, r)

	booking, err := f.svc.Create(context.Background(), diner, request("17:30", 3))
	require.NoError(t, err)
	assert.Equal(t, 4, booking.TableSize)
	assert.NotContains(t, f.availableTimes(t, 4), "17:30")
	assert.Contains(t, f.availableTimes(t, 6), "17:30")
}

func TestBookingService_Create_RetriesAfterLostRace(t *testing.T) {
	r := bistro()
	r.Tables = []model.TableInventory{{TableSize: 2, Count: 1}, {TableSize: 4, Count: 1}}
	f := newFixture(t, config.SlotCapacityMultiset, r)

	// A concurrent booking takes the size-2 table between lookup and claim.
	raced := false
	f.store.RemoveSlotHook = func(ref model.BucketRef, tm civil.TimeOfDay) error {
		if raced {
			return nil
		}
		raced = true
		b, _ := f.store.Bucket(ref)
		b.Slot(tm).Remaining = 0
		b.Slot(tm).Booked = 1
		f.store.Seed(model.AvailabilityDay{RestaurantID: ref.RestaurantID, Date: ref.Date, Buckets: []model.SizeBucket{b}})
		return availabilityerrors.ErrSlotTaken
	}

	booking, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
	require.NoError(t, err)
	assert.Equal(t, 4, booking.TableSize)
	assert.Equal(t, int32(2), f.store.finds.Load())
}

func TestBookingService_Create_GivesUpAfterRetry(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	var claims atomic.Int32
	f.store.RemoveSlotHook = func(model.BucketRef, civil.TimeOfDay) error {
		claims.Add(1)
		return availabilityerrors.ErrSlotTaken
	}

	_, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability))
	assert.Equal(t, int32(2), claims.Load())
	assert.Empty(t, f.emitter.emitted())
}

func TestBookingService_Create_StoreFailure(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	f.store.RemoveSlotHook = func(model.BucketRef, civil.TimeOfDay) error {
		return errors.New("connection reset")
	}

	_, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestBookingService_Create_InsertFailureReleasesTable(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	f.repo.createFunc = func(ctx context.Context, b *model.Booking) error {
		return errors.New("write concern error")
	}

	_, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.Equal(t, []string{"17:00", "17:30", "18:00", "18:30"}, f.availableTimes(t, 4))
	assert.Empty(t, f.emitter.emitted())
}

func TestBookingService_Create_ConcurrentLastTable(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())

	const n = 20
	var wg sync.WaitGroup
	var won, lost atomic.Int32
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := auth.Principal{UserID: fmt.Sprintf("user-%d", i), Role: auth.RoleUser}
			_, err := f.svc.Create(context.Background(), p, request("18:00", 2))
			switch {
			case err == nil:
				won.Add(1)
			case apperrors.HasCode(err, apperrors.CodeNoAvailability):
				lost.Add(1)
			default:
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(n-1), lost.Load())

	b, _ := f.store.Bucket(model.BucketRef{RestaurantID: restaurantID, Date: dayD, TableSize: 4})
	slot := b.Slot(civil.TimeOfDay{Hour: 18})
	require.NotNil(t, slot)
	assert.Equal(t, 0, slot.Remaining)
	assert.Equal(t, 1, slot.Booked)
}

func TestBookingService_CapacityModes(t *testing.T) {
	r := bistro()
	r.Tables = []model.TableInventory{{TableSize: 4, Count: 2}}

	t.Run("multiset seats one party per physical table", func(t *testing.T) {
		f := newFixture(t, config.SlotCapacityMultiset, r)
		ctx := context.Background()

		_, err := f.svc.Create(ctx, diner, request("18:00", 2))
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, other, request("18:00", 4))
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, admin, request("18:00", 1))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability))
	})

	t.Run("single allows one booking per size and time", func(t *testing.T) {
		f := newFixture(t, config.SlotCapacitySingle, r)
		ctx := context.Background()

		_, err := f.svc.Create(ctx, diner, request("18:00", 2))
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, other, request("18:00", 4))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNoAvailability))
	})
}

type failingPublisher struct{ calls atomic.Int32 }

func (p *failingPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.calls.Add(1)
	return errors.New("broker unavailable")
}

func TestBookingService_Create_PublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	pub := &failingPublisher{}
	dispatcher := events.NewDispatcher(pub, 4, 1, logger.Discard())
	dispatcher.Start()
	f.svc.(*bookingService).emitter = dispatcher

	booking, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)

	require.NoError(t, dispatcher.Close(context.Background()))
	assert.Equal(t, int32(1), pub.calls.Load())
}

// ────────────────────────────────────────────────
// Cancel
// ────────────────────────────────────────────────

func TestBookingService_Cancel_Twice(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, diner, request("18:00", 2))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, diner, booking.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, diner, booking.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyCancelled))

	b, _ := f.store.Bucket(model.BucketRef{RestaurantID: restaurantID, Date: dayD, TableSize: 4})
	slot := b.Slot(civil.TimeOfDay{Hour: 18})
	assert.Equal(t, 1, slot.Remaining)
	assert.Equal(t, 0, slot.Booked)
	assert.Len(t, f.emitter.emitted(), 2)
}

func TestBookingService_Cancel_LosesConcurrentCancel(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, diner, request("18:00", 2))
	require.NoError(t, err)
	f.repo.cancelFunc = func(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotConfirmed, id)
	}

	_, err = f.svc.Cancel(ctx, diner, booking.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyCancelled))
	assert.NotContains(t, f.availableTimes(t, 4), "18:00", "loser must not restore the slot")
}

func TestBookingService_Cancel_Authorization(t *testing.T) {
	tests := []struct {
		name      string
		principal auth.Principal
		wantCode  string
	}{
		{"other diner", other, apperrors.CodeForbidden},
		{"restaurant manager", manager, apperrors.CodeForbidden},
		{"admin", admin, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.SlotCapacityMultiset, bistro())
			booking, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
			require.NoError(t, err)

			_, err = f.svc.Cancel(context.Background(), tt.principal, booking.ID)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			assert.True(t, apperrors.HasCode(err, tt.wantCode))
			assert.NotContains(t, f.availableTimes(t, 4), "18:00")
		})
	}
}

func TestBookingService_Cancel_NotFound(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())

	_, err := f.svc.Cancel(context.Background(), diner, "650000000000000000000abc")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestBookingService_Cancel_AvailabilityGone(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, diner, request("18:00", 2))
	require.NoError(t, err)
	_, err = f.store.DeleteBefore(ctx, dayD.AddDays(1))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, diner, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
}

// ────────────────────────────────────────────────
// Queries
// ────────────────────────────────────────────────

func TestBookingService_GetByID(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	booking, err := f.svc.Create(context.Background(), diner, request("18:00", 2))
	require.NoError(t, err)

	for _, p := range []auth.Principal{diner, admin, manager} {
		got, err := f.svc.GetByID(context.Background(), p, booking.ID)
		require.NoError(t, err, p.UserID)
		assert.Equal(t, booking.ID, got.ID)
	}

	_, err = f.svc.GetByID(context.Background(), other, booking.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	otherManager := auth.Principal{UserID: "manager-2", Role: auth.RoleManager}
	_, err = f.svc.GetByID(context.Background(), otherManager, booking.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestBookingService_ListByUser(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()
	_, err := f.svc.Create(ctx, diner, request("17:00", 2))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, other, request("18:00", 2))
	require.NoError(t, err)

	bookings, total, err := f.svc.ListByUser(ctx, diner, "", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, bookings, 1)
	assert.Equal(t, diner.UserID, bookings[0].UserID)

	_, _, err = f.svc.ListByUser(ctx, diner, other.UserID, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, total, err = f.svc.ListByUser(ctx, admin, other.UserID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	f.repo.countFunc = func(ctx context.Context) (int64, error) { return 0, errors.New("timeout") }
	_, _, err = f.svc.ListByUser(ctx, diner, "", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestBookingService_ListByRestaurant(t *testing.T) {
	f := newFixture(t, config.SlotCapacityMultiset, bistro())
	ctx := context.Background()
	_, err := f.svc.Create(ctx, diner, request("17:00", 2))
	require.NoError(t, err)

	bookings, total, err := f.svc.ListByRestaurant(ctx, manager, restaurantID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, bookings, 1)

	_, _, err = f.svc.ListByRestaurant(ctx, diner, restaurantID, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, _, err = f.svc.ListByRestaurant(ctx, admin, "650000000000000000000099", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
