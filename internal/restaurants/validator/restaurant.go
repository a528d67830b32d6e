package validator

import (
	"fmt"

	"booktable/pkg/logger"
	"booktable/pkg/model"
	"booktable/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// maxTablesPerSize caps the summed count of one table size across inventory
// entries; the generator folds duplicate sizes into one bucket.
const maxTablesPerSize = 500

type RestaurantValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRestaurantValidator(log *logger.Logger) *RestaurantValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize restaurant validator", "error", err)
	}

	return &RestaurantValidator{
		validate: v,
		logger:   log,
	}
}

func (v *RestaurantValidator) Validate(r *model.Restaurant) error {
	if err := validation.Struct(v.validate, r); err != nil {
		return err
	}
	return validateInventory(r.Tables)
}

func (v *RestaurantValidator) ValidateUpdate(u *model.RestaurantUpdate) error {
	if err := validation.Struct(v.validate, u); err != nil {
		return err
	}
	if u.Tables != nil {
		return validateInventory(*u.Tables)
	}
	return nil
}

func validateInventory(tables []model.TableInventory) error {
	totals := make(map[int]int, len(tables))
	for _, t := range tables {
		totals[t.TableSize] += t.Count
		if totals[t.TableSize] > maxTablesPerSize {
			return validation.ValidationErrors{{
				Field:   "tables",
				Message: fmt.Sprintf("tables of size %d exceed %d in total", t.TableSize, maxTablesPerSize),
			}}
		}
	}
	return nil
}
