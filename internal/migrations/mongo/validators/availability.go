package validators

import "go.mongodb.org/mongo-driver/bson"

// AvailabilityValidator rejects negative counters, which is the last line of
// defence behind the conditional updates that claim and release tables.
var AvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"restaurant_id", "date", "table_size", "capacity", "slots"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "objectId"},
			"restaurant_id": bson.M{"bsonType": "string", "minLength": 24, "maxLength": 24},
			"date":          civilDate,
			"table_size":    bson.M{"bsonType": integer, "minimum": 1},
			"capacity":      bson.M{"bsonType": integer, "minimum": 1},
			"slots": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"time", "remaining", "booked"},
					"properties": bson.M{
						"time":      timeOfDay,
						"remaining": bson.M{"bsonType": integer, "minimum": 0},
						"booked":    bson.M{"bsonType": integer, "minimum": 0},
					},
				},
			},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
