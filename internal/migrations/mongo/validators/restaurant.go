package validators

import "go.mongodb.org/mongo-driver/bson"

var RestaurantValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "address", "hours", "tables", "manager_id", "is_approved", "is_pending", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "objectId"},
			"name":         bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"cuisine_type": bson.M{"bsonType": "string"},
			"cost_rating":  bson.M{"bsonType": integer, "minimum": 1, "maximum": 4},
			"address": bson.M{
				"bsonType": "object",
				"required": []string{"city", "zip"},
				"properties": bson.M{
					"city": bson.M{"bsonType": "string"},
					"zip":  bson.M{"bsonType": "string"},
				},
			},
			"hours": bson.M{
				"bsonType": "object",
				"required": []string{"opening", "closing"},
				"properties": bson.M{
					"opening": timeOfDay,
					"closing": timeOfDay,
				},
			},
			"tables": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"table_size", "count"},
					"properties": bson.M{
						"table_size": bson.M{"bsonType": integer, "minimum": 1},
						"count":      bson.M{"bsonType": integer, "minimum": 1},
					},
				},
			},
			"photos": bson.M{
				"bsonType": []string{"array", "null"},
				"maxItems": 20,
				"items":    bson.M{"bsonType": "string"},
			},
			"manager_id":  bson.M{"bsonType": "string"},
			"is_approved": bson.M{"bsonType": "bool"},
			"is_pending":  bson.M{"bsonType": "bool"},
			"created_at":  bson.M{"bsonType": "date"},
			"updated_at":  bson.M{"bsonType": "date"},
		},
	},
}
