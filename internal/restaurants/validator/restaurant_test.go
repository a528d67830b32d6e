package validator

import (
	"testing"

	"booktable/pkg/logger"
	"booktable/pkg/model"
	"booktable/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRestaurant() *model.Restaurant {
	return &model.Restaurant{
		Name:        "Bistro",
		CuisineType: "French",
		CostRating:  2,
		Address:     model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"},
		Contact:     model.ContactInfo{Phone: "+15551234567", Email: "hello@bistro.example"},
		Hours:       model.OpeningHours{Opening: "17:00", Closing: "19:00"},
		Tables:      []model.TableInventory{{TableSize: 4, Count: 1}},
		ManagerID:   "manager-1",
	}
}

func TestValidate(t *testing.T) {
	v := NewRestaurantValidator(logger.Discard())

	tests := []struct {
		name   string
		mutate func(r *model.Restaurant)
		field  string
	}{
		{"valid", func(r *model.Restaurant) {}, ""},
		{"bad opening", func(r *model.Restaurant) { r.Hours.Opening = "5pm" }, "hours.opening"},
		{"no tables", func(r *model.Restaurant) { r.Tables = nil }, "tables"},
		{"zero table size", func(r *model.Restaurant) { r.Tables[0].TableSize = 0 }, "tables[0].table_size"},
		{"cost rating", func(r *model.Restaurant) { r.CostRating = 5 }, "cost_rating"},
		{"bad email", func(r *model.Restaurant) { r.Contact.Email = "nope" }, "contact.email"},
		{"too many tables of a size", func(r *model.Restaurant) {
			r.Tables = []model.TableInventory{{TableSize: 2, Count: 300}, {TableSize: 2, Count: 300}}
		}, "tables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRestaurant()
			tt.mutate(r)

			err := v.Validate(r)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validation.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewRestaurantValidator(logger.Discard())

	assert.NoError(t, v.ValidateUpdate(&model.RestaurantUpdate{Name: "New Bistro"}))

	err := v.ValidateUpdate(&model.RestaurantUpdate{Hours: &model.OpeningHours{Opening: "17:00", Closing: "7pm"}})
	var verrs validation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "hours.closing", verrs[0].Field)
}
