package model

import "time"

type Address struct {
	Street string `json:"street" bson:"street" validate:"required,min=2,max=200"`
	City   string `json:"city" bson:"city" validate:"required,min=2,max=100"`
	State  string `json:"state" bson:"state" validate:"required,min=2,max=100"`
	Zip    string `json:"zip" bson:"zip" validate:"required,min=3,max=12"`
}

type ContactInfo struct {
	Phone string `json:"phone" bson:"phone" validate:"required,min=6,max=20"`
	Email string `json:"email" bson:"email" validate:"required,email"`
}

// OpeningHours uses "HH:MM" local times. A closing time at or before the
// opening time means the restaurant closes after midnight.
type OpeningHours struct {
	Opening string `json:"opening" bson:"opening" validate:"required,time_of_day"`
	Closing string `json:"closing" bson:"closing" validate:"required,time_of_day"`
}

type TableInventory struct {
	TableSize int `json:"table_size" bson:"table_size" validate:"required,min=1,max=50"`
	Count     int `json:"count" bson:"count" validate:"required,min=1,max=500"`
}

type Restaurant struct {
	ID          string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name        string           `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description string           `json:"description,omitempty" bson:"description" validate:"omitempty,max=2000"`
	CuisineType string           `json:"cuisine_type" bson:"cuisine_type" validate:"required,min=2,max=50"`
	CostRating  int              `json:"cost_rating" bson:"cost_rating" validate:"required,min=1,max=4"`
	Address     Address          `json:"address" bson:"address" validate:"required"`
	Contact     ContactInfo      `json:"contact" bson:"contact" validate:"required"`
	Hours       OpeningHours     `json:"hours" bson:"hours" validate:"required"`
	Tables      []TableInventory `json:"tables" bson:"tables" validate:"required,min=1,max=50,dive"`
	Photos      []string         `json:"photos,omitempty" bson:"photos" validate:"omitempty,max=20,dive,url"`
	ManagerID   string           `json:"manager_id" bson:"manager_id" validate:"required"`
	IsApproved  bool             `json:"is_approved" bson:"is_approved"`
	IsPending   bool             `json:"is_pending" bson:"is_pending"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" bson:"updated_at"`
}

type RestaurantUpdate struct {
	Name        string            `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string           `json:"description,omitempty" validate:"omitempty,max=2000"`
	CuisineType string            `json:"cuisine_type,omitempty" validate:"omitempty,min=2,max=50"`
	CostRating  *int              `json:"cost_rating,omitempty" validate:"omitempty,min=1,max=4"`
	Address     *Address          `json:"address,omitempty" validate:"omitempty"`
	Contact     *ContactInfo      `json:"contact,omitempty" validate:"omitempty"`
	Hours       *OpeningHours     `json:"hours,omitempty" validate:"omitempty"`
	Tables      *[]TableInventory `json:"tables,omitempty" validate:"omitempty,min=1,max=50,dive"`
	Photos      *[]string         `json:"photos,omitempty" validate:"omitempty,max=20,dive,url"`
}

// InventoryChanged reports whether an update touches anything the slot
// generator reads.
func (u *RestaurantUpdate) InventoryChanged() bool {
	return u.Hours != nil || u.Tables != nil
}

// RestaurantResult is a search hit annotated with review statistics.
type RestaurantResult struct {
	Restaurant
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

type ReviewStats struct {
	RestaurantID  string  `bson:"_id"`
	AverageRating float64 `bson:"average_rating"`
	ReviewCount   int     `bson:"review_count"`
}
