// Package validation wraps go-playground/validator with the civil date and
// time tags used by request and restaurant models.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"booktable/pkg/civil"
	apperrors "booktable/pkg/errors"

	"github.com/go-playground/validator/v10"
)

const (
	TagCivilDate = "civil_date"
	TagTimeOfDay = "time_of_day"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// AppError turns the first failure into an INVALID_INPUT error naming the
// field and lists every failure in the details.
func (v ValidationErrors) AppError() *apperrors.AppError {
	if len(v) == 0 {
		return apperrors.InvalidInput("validation failed")
	}
	return apperrors.InvalidInput(v[0].Message).WithDetails(map[string]any{
		"field":  v[0].Field,
		"errors": []ValidationError(v),
	})
}

// New returns a validator that reports json field names and knows the civil
// tags.
func New() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation(TagCivilDate, validateCivilDate); err != nil {
		return nil, fmt.Errorf("failed to register %q validator: %w", TagCivilDate, err)
	}
	if err := v.RegisterValidation(TagTimeOfDay, validateTimeOfDay); err != nil {
		return nil, fmt.Errorf("failed to register %q validator: %w", TagTimeOfDay, err)
	}
	return v, nil
}

func validateCivilDate(fl validator.FieldLevel) bool {
	_, err := civil.ParseDate(fl.Field().String())
	return err == nil
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := civil.ParseTime(fl.Field().String())
	return err == nil
}

// Struct validates s and translates failures into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		case TagCivilDate:
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case TagTimeOfDay:
			message = fmt.Sprintf("%s must be a time in HH:MM format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(err.Namespace()),
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the top-level struct name: "Restaurant.hours.opening"
// becomes "hours.opening".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
