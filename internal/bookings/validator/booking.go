package validator

import (
	"booktable/pkg/logger"
	"booktable/pkg/model"
	"booktable/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// MaxPartySize bounds a single reservation; larger groups book through the
// restaurant.
const MaxPartySize = 50

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize booking validator", "error", err)
	}

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// ValidatePartySize is checked on its own so that a bad size is rejected
// before anything else about the request is looked at.
func (v *BookingValidator) ValidatePartySize(size int) error {
	switch {
	case size < 1:
		return validation.ValidationErrors{{Field: "party_size", Message: "party_size must be at least 1"}}
	case size > MaxPartySize:
		return validation.ValidationErrors{{Field: "party_size", Message: "party_size is too large"}}
	}
	return nil
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	if err := v.ValidatePartySize(req.PartySize); err != nil {
		return err
	}
	return validation.Struct(v.validate, req)
}
