package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	availabilityrepo "booktable/internal/availability/repository"
	"booktable/internal/availability/slots"
	restauranterrors "booktable/internal/restaurants/errors"
	"booktable/internal/restaurants/repository"
	"booktable/internal/restaurants/validator"
	"booktable/pkg/auth"
	"booktable/pkg/civil"
	"booktable/pkg/config"
	apperrors "booktable/pkg/errors"
	"booktable/pkg/model"
	"booktable/pkg/sanitizer"
	"booktable/pkg/validation"
)

// SearchQuery filters public restaurant search. Date and Time only take effect
// together; PartySize <= 0 means any table size.
type SearchQuery struct {
	Location  string
	Date      *civil.Date
	Time      *civil.TimeOfDay
	PartySize int
}

type RestaurantService interface {
	Create(ctx context.Context, principal auth.Principal, r *model.Restaurant) error
	GetByID(ctx context.Context, id string) (*model.Restaurant, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, int64, error)
	// ListManaged pages through the restaurants the principal manages.
	ListManaged(ctx context.Context, principal auth.Principal, limit int, offset int64) ([]*model.Restaurant, int64, error)
	Update(ctx context.Context, principal auth.Principal, id string, updates *model.RestaurantUpdate) (*model.Restaurant, error)
	Approve(ctx context.Context, id string) error
	Hold(ctx context.Context, id string) error

	Availability(ctx context.Context, id string, date civil.Date) (*model.DayView, error)
	Search(ctx context.Context, query SearchQuery) ([]*model.RestaurantResult, error)

	// RollWindow regenerates every restaurant's availability window and
	// prunes days that are already past. It returns the number of restaurants
	// regenerated.
	RollWindow(ctx context.Context) (int, error)
}

type restaurantService struct {
	repo         repository.RestaurantRepository
	reviews      repository.ReviewRepository
	availability availabilityrepo.AvailabilityRepository
	generator    *slots.Generator
	validator    *validator.RestaurantValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewRestaurantService(
	repo repository.RestaurantRepository,
	reviews repository.ReviewRepository,
	availability availabilityrepo.AvailabilityRepository,
	generator *slots.Generator,
	validator *validator.RestaurantValidator,
	cfg *config.Config,
) RestaurantService {
	return &restaurantService{
		repo:         repo,
		reviews:      reviews,
		availability: availability,
		generator:    generator,
		validator:    validator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *restaurantService) today() civil.Date {
	return civil.DateOf(s.now())
}

func (s *restaurantService) Create(ctx context.Context, principal auth.Principal, r *model.Restaurant) error {
	if !principal.HasRole(auth.RoleManager, auth.RoleAdmin) {
		return apperrors.Forbidden("Only managers can create restaurants")
	}

	s.sanitize(r)
	r.ID = ""
	if r.ManagerID == "" || !principal.IsAdmin() {
		r.ManagerID = principal.UserID
	}
	r.IsApproved = false
	r.IsPending = true

	if err := s.validator.Validate(r); err != nil {
		s.cfg.Log.Warn("Restaurant validation failed",
			"name", r.Name,
			"manager_id", r.ManagerID,
			"error", err,
		)
		return validationError(err)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.cfg.Log.Error("Failed to create restaurant",
			"name", r.Name,
			"manager_id", r.ManagerID,
			"error", err,
		)
		return apperrors.Internal("Failed to create restaurant", err)
	}

	// The roller fills the window on its next pass if this fails.
	if err := s.regenerate(ctx, r); err != nil {
		s.cfg.Log.Error("Failed to generate availability for new restaurant",
			"id", r.ID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Restaurant created successfully",
		"id", r.ID,
		"name", r.Name,
		"manager_id", r.ManagerID,
	)
	return nil
}

func (s *restaurantService) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	if id == "" {
		return nil, apperrors.InvalidField("id", "Restaurant ID cannot be empty")
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id, "Failed to retrieve restaurant")
	}
	return r, nil
}

func (s *restaurantService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, int64, error) {
	return s.page(ctx, limit, offset,
		s.repo.Count,
		func(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, error) {
			return s.repo.FindAll(ctx, limit, offset)
		},
	)
}

func (s *restaurantService) ListManaged(ctx context.Context, principal auth.Principal, limit int, offset int64) ([]*model.Restaurant, int64, error) {
	return s.page(ctx, limit, offset,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByManager(ctx, principal.UserID)
		},
		func(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, error) {
			return s.repo.FindByManager(ctx, principal.UserID, limit, offset)
		},
	)
}

func (s *restaurantService) page(
	ctx context.Context,
	limit int,
	offset int64,
	countFn func(ctx context.Context) (int64, error),
	findFn func(ctx context.Context, limit int, offset int64) ([]*model.Restaurant, error),
) ([]*model.Restaurant, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var restaurants []*model.Restaurant
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = countFn(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count restaurants", "error", err)
			errCount = apperrors.Internal("Failed to count restaurants", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		restaurants, err = findFn(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get restaurants",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve restaurants", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return restaurants, count, nil
}

func (s *restaurantService) Update(ctx context.Context, principal auth.Principal, id string, updates *model.RestaurantUpdate) (*model.Restaurant, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanManageRestaurant(existing.ManagerID) {
		return nil, apperrors.Forbidden("Only the restaurant's manager can edit it")
	}

	s.sanitizeUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validationError(err)
	}

	merged := mergeRestaurantUpdates(existing, updates)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Restaurant validation failed",
			"id", id,
			"error", err,
		)
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		return nil, s.translateLookupError(err, id, "Failed to update restaurant")
	}

	if updates.InventoryChanged() {
		if err := s.regenerate(ctx, merged); err != nil {
			s.cfg.Log.Error("Failed to regenerate availability",
				"id", id,
				"error", err,
			)
			return nil, apperrors.Internal("Restaurant updated but availability could not be regenerated", err)
		}
	}

	s.cfg.Log.Info("Restaurant updated successfully",
		"id", id,
		"inventory_changed", updates.InventoryChanged(),
	)
	return merged, nil
}

func (s *restaurantService) Approve(ctx context.Context, id string) error {
	return s.setApproval(ctx, id, true)
}

func (s *restaurantService) Hold(ctx context.Context, id string) error {
	return s.setApproval(ctx, id, false)
}

func (s *restaurantService) setApproval(ctx context.Context, id string, approved bool) error {
	if id == "" {
		return apperrors.InvalidField("id", "Restaurant ID cannot be empty")
	}
	if err := s.repo.SetApproval(ctx, id, approved); err != nil {
		return s.translateLookupError(err, id, "Failed to update restaurant approval")
	}

	s.cfg.Log.Info("Restaurant approval changed", "id", id, "approved", approved)
	return nil
}

func (s *restaurantService) Availability(ctx context.Context, id string, date civil.Date) (*model.DayView, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	day, err := s.availability.GetDay(ctx, id, date)
	if err != nil {
		s.cfg.Log.Error("Failed to load availability",
			"id", id,
			"date", date.String(),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}

	view := day.View()
	return &view, nil
}

func (s *restaurantService) Search(ctx context.Context, query SearchQuery) ([]*model.RestaurantResult, error) {
	location := sanitizer.NormalizeLocation(query.Location)

	restaurants, err := s.repo.Search(ctx, location)
	if err != nil {
		s.cfg.Log.Error("Failed to search restaurants",
			"location", location,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to search restaurants", err)
	}

	if query.Date != nil && query.Time != nil && len(restaurants) > 0 {
		restaurants, err = s.withAvailability(ctx, restaurants, *query.Date, *query.Time, query.PartySize)
		if err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(restaurants))
	for _, r := range restaurants {
		ids = append(ids, r.ID)
	}

	stats, err := s.reviews.StatsFor(ctx, ids)
	if err != nil {
		s.cfg.Log.Warn("Failed to load review statistics, returning results without them",
			"results_count", len(ids),
			"error", err,
		)
		stats = map[string]model.ReviewStats{}
	}

	results := make([]*model.RestaurantResult, 0, len(restaurants))
	for _, r := range restaurants {
		st := stats[r.ID]
		results = append(results, &model.RestaurantResult{
			Restaurant:    *r,
			AverageRating: st.AverageRating,
			ReviewCount:   st.ReviewCount,
		})
	}

	s.cfg.Log.Debug("Restaurant search completed",
		"location", location,
		"availability_filter", query.Date != nil && query.Time != nil,
		"results_count", len(results),
	)
	return results, nil
}

func (s *restaurantService) withAvailability(ctx context.Context, restaurants []*model.Restaurant, date civil.Date, at civil.TimeOfDay, partySize int) ([]*model.Restaurant, error) {
	ids := make([]string, 0, len(restaurants))
	for _, r := range restaurants {
		ids = append(ids, r.ID)
	}

	available, err := s.availability.RestaurantsWithAvailability(ctx, ids, date, max(partySize, 1), at, s.cfg.SearchTolerance)
	if err != nil {
		s.cfg.Log.Error("Failed to filter restaurants by availability",
			"date", date.String(),
			"time", at.String(),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to search availability", err)
	}

	keep := make(map[string]bool, len(available))
	for _, id := range available {
		keep[id] = true
	}
	filtered := make([]*model.Restaurant, 0, len(available))
	for _, r := range restaurants {
		if keep[r.ID] {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *restaurantService) RollWindow(ctx context.Context) (int, error) {
	today := s.today()
	pageSize := config.DefaultPaginationLimit

	var rolled, failed int
	for offset := int64(0); ; offset += int64(pageSize) {
		page, err := s.repo.FindAll(ctx, pageSize, offset)
		if err != nil {
			return rolled, fmt.Errorf("failed to list restaurants: %w", err)
		}
		for _, r := range page {
			if err := s.regenerate(ctx, r); err != nil {
				failed++
				s.cfg.Log.Warn("Failed to roll availability window", "id", r.ID, "error", err)
				continue
			}
			rolled++
		}
		if len(page) < pageSize {
			break
		}
	}

	pruned, err := s.availability.DeleteBefore(ctx, today)
	if err != nil {
		return rolled, fmt.Errorf("failed to prune past availability: %w", err)
	}

	s.cfg.Log.Info("Availability window rolled",
		"restaurants", rolled,
		"failed", failed,
		"pruned_buckets", pruned,
		"from", today.String(),
	)
	return rolled, nil
}

// regenerate merges a freshly generated window into the stored one.
func (s *restaurantService) regenerate(ctx context.Context, r *model.Restaurant) error {
	today := s.today()
	days := s.cfg.AvailabilityWindowDays

	fresh, err := s.generator.Generate(r, today, days)
	if err != nil {
		return err
	}

	_, err = s.availability.MergeDays(ctx, r.ID, today, today.AddDays(days-1), func(existing []model.AvailabilityDay) []model.AvailabilityDay {
		return slots.Merge(existing, fresh, today, s.cfg.TemplateOverrideDays)
	})
	return err
}

func (s *restaurantService) translateLookupError(err error, id, message string) error {
	if errors.Is(err, restauranterrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Restaurant", id)
	}
	if errors.Is(err, restauranterrors.ErrInvalidID) {
		return apperrors.InvalidField("id", "Invalid restaurant ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.AppError()
	}
	return apperrors.InvalidInput(err.Error())
}

func (s *restaurantService) sanitize(r *model.Restaurant) {
	r.Name = sanitizer.NormalizeName(r.Name)
	r.Description = sanitizer.TrimAndNormalize(r.Description)
	r.CuisineType = sanitizer.NormalizeName(r.CuisineType)
	sanitizeAddress(&r.Address)
	sanitizeContact(&r.Contact)
	r.Photos = sanitizer.NormalizeURLs(r.Photos)
}

func (s *restaurantService) sanitizeUpdate(u *model.RestaurantUpdate) {
	if u.Name != "" {
		u.Name = sanitizer.NormalizeName(u.Name)
	}
	if u.Description != nil {
		d := sanitizer.TrimAndNormalize(*u.Description)
		u.Description = &d
	}
	if u.CuisineType != "" {
		u.CuisineType = sanitizer.NormalizeName(u.CuisineType)
	}
	if u.Address != nil {
		sanitizeAddress(u.Address)
	}
	if u.Contact != nil {
		sanitizeContact(u.Contact)
	}
	if u.Photos != nil {
		photos := sanitizer.NormalizeURLs(*u.Photos)
		u.Photos = &photos
	}
}

func sanitizeAddress(a *model.Address) {
	a.Street = sanitizer.TrimAndNormalize(a.Street)
	a.City = sanitizer.NormalizeCity(a.City)
	a.State = sanitizer.TrimAndNormalize(a.State)
	a.Zip = sanitizer.NormalizeZip(a.Zip)
}

func sanitizeContact(c *model.ContactInfo) {
	c.Phone = sanitizer.NormalizePhone(c.Phone)
	c.Email = sanitizer.NormalizeEmail(c.Email)
}

func mergeRestaurantUpdates(existing *model.Restaurant, updates *model.RestaurantUpdate) *model.Restaurant {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.CuisineType != "" {
		merged.CuisineType = updates.CuisineType
	}
	if updates.CostRating != nil {
		merged.CostRating = *updates.CostRating
	}
	if updates.Address != nil {
		merged.Address = *updates.Address
	}
	if updates.Contact != nil {
		merged.Contact = *updates.Contact
	}
	if updates.Hours != nil {
		merged.Hours = *updates.Hours
	}
	if updates.Tables != nil {
		merged.Tables = append([]model.TableInventory(nil), (*updates.Tables)...)
	}
	if updates.Photos != nil {
		merged.Photos = *updates.Photos
	}

	return &merged
}
