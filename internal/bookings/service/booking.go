package service

import (
	"context"
	"errors"
	"sync"
	"time"

	availabilityerrors "booktable/internal/availability/errors"
	availabilityrepo "booktable/internal/availability/repository"
	bookingserrors "booktable/internal/bookings/errors"
	"booktable/internal/bookings/repository"
	"booktable/internal/bookings/validator"
	"booktable/internal/events"
	restauranterrors "booktable/internal/restaurants/errors"
	"booktable/pkg/auth"
	"booktable/pkg/civil"
	"booktable/pkg/config"
	apperrors "booktable/pkg/errors"
	"booktable/pkg/model"
	"booktable/pkg/validation"
)

// RestaurantLookup is the part of the restaurant store bookings depend on.
type RestaurantLookup interface {
	FindByID(ctx context.Context, id string) (*model.Restaurant, error)
}

type BookingService interface {
	Create(ctx context.Context, principal auth.Principal, req *model.CreateBookingRequest) (*model.Booking, error)
	Cancel(ctx context.Context, principal auth.Principal, id string) (*model.Booking, error)
	GetByID(ctx context.Context, principal auth.Principal, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, principal auth.Principal, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListByRestaurant(ctx context.Context, principal auth.Principal, restaurantID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo         repository.BookingRepository
	availability availabilityrepo.AvailabilityRepository
	restaurants  RestaurantLookup
	emitter      events.Emitter
	validator    *validator.BookingValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	availability availabilityrepo.AvailabilityRepository,
	restaurants RestaurantLookup,
	emitter events.Emitter,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:         repo,
		availability: availability,
		restaurants:  restaurants,
		emitter:      emitter,
		validator:    validator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, principal auth.Principal, req *model.CreateBookingRequest) (*model.Booking, error) {
	if err := s.validator.ValidatePartySize(req.PartySize); err != nil {
		return nil, validationError(err)
	}
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"restaurant_id", req.RestaurantID,
			"user_id", principal.UserID,
			"error", err,
		)
		return nil, validationError(err)
	}

	date, err := civil.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.InvalidField("date", "date must be YYYY-MM-DD")
	}
	at, err := civil.ParseTime(req.Time)
	if err != nil {
		return nil, apperrors.InvalidField("time", "time must be HH:MM")
	}

	restaurant, err := s.restaurants.FindByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, s.translateRestaurantError(err, req.RestaurantID)
	}

	bucket, err := s.takeTable(ctx, restaurant.ID, date, req.PartySize, at)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		UserID:       principal.UserID,
		UserEmail:    principal.Email,
		RestaurantID: restaurant.ID,
		Date:         date,
		Time:         at,
		PartySize:    req.PartySize,
		TableSize:    bucket.TableSize,
		Status:       model.BookingStatusConfirmed,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking, releasing table",
			"restaurant_id", restaurant.ID,
			"date", date,
			"time", at,
			"table_size", bucket.TableSize,
			"error", err,
		)
		if restoreErr := s.availability.RestoreSlot(context.WithoutCancel(ctx), booking.Bucket(), at); restoreErr != nil {
			s.cfg.Log.Error("Failed to release table after insert failure",
				"restaurant_id", restaurant.ID,
				"date", date,
				"time", at,
				"table_size", bucket.TableSize,
				"error", restoreErr,
			)
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking confirmed",
		"id", booking.ID,
		"restaurant_id", booking.RestaurantID,
		"user_id", booking.UserID,
		"date", booking.Date,
		"time", booking.Time,
		"party_size", booking.PartySize,
		"table_size", booking.TableSize,
	)
	s.emit(ctx, model.EventBookingConfirmed, booking, restaurant.Name, principal.UserID)
	return booking, nil
}

// takeTable finds the smallest bucket with a free table at t and claims it.
// A lost race re-runs the lookup, at most BookingMaxRetries times.
func (s *bookingService) takeTable(ctx context.Context, restaurantID string, date civil.Date, partySize int, t civil.TimeOfDay) (*model.SizeBucket, error) {
	attempts := 1 + max(s.cfg.BookingMaxRetries, 0)

	for attempt := 1; attempt <= attempts; attempt++ {
		bucket, err := s.availability.FindExact(ctx, restaurantID, date, partySize, t)
		if err != nil {
			if errors.Is(err, availabilityerrors.ErrNoBucket) {
				return nil, apperrors.NoAvailability("No table available for the requested time and party size")
			}
			s.cfg.Log.Error("Failed to look up availability",
				"restaurant_id", restaurantID,
				"date", date,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to check availability", err)
		}

		err = s.availability.RemoveSlot(ctx, bucket.Ref(), t)
		if err == nil {
			return bucket, nil
		}
		if !errors.Is(err, availabilityerrors.ErrSlotTaken) && !errors.Is(err, availabilityerrors.ErrBucketNotFound) {
			s.cfg.Log.Error("Failed to reserve table",
				"restaurant_id", restaurantID,
				"date", date,
				"time", t,
				"table_size", bucket.TableSize,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to reserve table", err)
		}
		s.cfg.Log.Debug("Table taken concurrently",
			"restaurant_id", restaurantID,
			"date", date,
			"time", t,
			"table_size", bucket.TableSize,
			"attempt", attempt,
		)
	}

	return nil, apperrors.NoAvailability("No table available for the requested time and party size")
}

func (s *bookingService) Cancel(ctx context.Context, principal auth.Principal, id string) (*model.Booking, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateBookingError(err, id)
	}
	if !principal.CanAccessBooking(existing.UserID) {
		return nil, apperrors.Forbidden("Not allowed to cancel this booking")
	}
	if existing.IsCancelled() {
		return nil, apperrors.AlreadyCancelled("Booking is already cancelled")
	}

	booking, err := s.repo.Cancel(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotConfirmed) {
			return nil, apperrors.AlreadyCancelled("Booking is already cancelled")
		}
		return nil, s.translateBookingError(err, id)
	}

	s.releaseTable(ctx, booking)

	s.cfg.Log.Info("Booking cancelled",
		"id", booking.ID,
		"restaurant_id", booking.RestaurantID,
		"user_id", booking.UserID,
		"cancelled_by", principal.UserID,
	)

	name := ""
	if restaurant, err := s.restaurants.FindByID(ctx, booking.RestaurantID); err == nil {
		name = restaurant.Name
	} else {
		s.cfg.Log.Warn("Restaurant lookup failed for cancelled booking",
			"id", booking.ID,
			"restaurant_id", booking.RestaurantID,
			"error", err,
		)
	}
	s.emit(ctx, model.EventBookingCancelled, booking, name, principal.UserID)
	return booking, nil
}

// releaseTable gives the cancelled booking's table back. The booking stays
// cancelled whatever happens here.
func (s *bookingService) releaseTable(ctx context.Context, booking *model.Booking) {
	err := s.availability.RestoreSlot(context.WithoutCancel(ctx), booking.Bucket(), booking.Time)
	switch {
	case err == nil:
	case errors.Is(err, availabilityerrors.ErrBucketNotFound):
		s.cfg.Log.Warn("No availability to restore for cancelled booking",
			"id", booking.ID,
			"restaurant_id", booking.RestaurantID,
			"date", booking.Date,
			"time", booking.Time,
			"table_size", booking.TableSize,
		)
	case errors.Is(err, availabilityerrors.ErrSlotFull):
		s.cfg.Log.Warn("Slot already fully available for cancelled booking",
			"id", booking.ID,
			"restaurant_id", booking.RestaurantID,
			"date", booking.Date,
			"time", booking.Time,
		)
	default:
		s.cfg.Log.Error("Failed to restore slot for cancelled booking",
			"id", booking.ID,
			"restaurant_id", booking.RestaurantID,
			"error", err,
		)
	}
}

func (s *bookingService) GetByID(ctx context.Context, principal auth.Principal, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateBookingError(err, id)
	}
	if principal.CanAccessBooking(booking.UserID) {
		return booking, nil
	}

	if principal.HasRole(auth.RoleManager) {
		restaurant, err := s.restaurants.FindByID(ctx, booking.RestaurantID)
		if err == nil && principal.CanManageRestaurant(restaurant.ManagerID) {
			return booking, nil
		}
	}
	return nil, apperrors.Forbidden("Not allowed to view this booking")
}

func (s *bookingService) ListByUser(ctx context.Context, principal auth.Principal, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		userID = principal.UserID
	}
	if userID != principal.UserID && !principal.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Not allowed to view these bookings")
	}

	return s.page(ctx, limit, offset,
		func(ctx context.Context) (int64, error) { return s.repo.CountByUser(ctx, userID) },
		func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			return s.repo.ListByUser(ctx, userID, limit, offset)
		},
	)
}

func (s *bookingService) ListByRestaurant(ctx context.Context, principal auth.Principal, restaurantID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, 0, s.translateRestaurantError(err, restaurantID)
	}
	if !principal.CanManageRestaurant(restaurant.ManagerID) {
		return nil, 0, apperrors.Forbidden("Not allowed to view this restaurant's bookings")
	}

	return s.page(ctx, limit, offset,
		func(ctx context.Context) (int64, error) { return s.repo.CountByRestaurant(ctx, restaurantID) },
		func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			return s.repo.ListByRestaurant(ctx, restaurantID, limit, offset)
		},
	)
}

func (s *bookingService) page(
	ctx context.Context,
	limit int,
	offset int64,
	count func(ctx context.Context) (int64, error),
	find func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error),
) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var total int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		total, errCount = count(ctx)
	}()
	go func() {
		defer wg.Done()
		bookings, errFind = find(ctx, limit, offset)
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", errFind)
	}
	return bookings, total, nil
}

func (s *bookingService) emit(ctx context.Context, eventType string, booking *model.Booking, restaurantName, actorID string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, model.BookingEvent{
		Type:           eventType,
		Booking:        *booking,
		RestaurantName: restaurantName,
		ActorID:        actorID,
		OccurredAt:     s.now().UTC(),
	})
}

func (s *bookingService) translateBookingError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidField("id", "invalid booking ID format")
	}
	s.cfg.Log.Error("Booking lookup failed", "id", id, "error", err)
	return apperrors.Internal("Failed to retrieve booking", err)
}

func (s *bookingService) translateRestaurantError(err error, id string) error {
	switch {
	case errors.Is(err, restauranterrors.ErrNotFound):
		return apperrors.NotFoundWithID("Restaurant", id)
	case errors.Is(err, restauranterrors.ErrInvalidID):
		return apperrors.InvalidField("restaurant_id", "invalid restaurant ID format")
	}
	s.cfg.Log.Error("Restaurant lookup failed", "id", id, "error", err)
	return apperrors.Internal("Failed to retrieve restaurant", err)
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.AppError()
	}
	return apperrors.InvalidInput(err.Error())
}
