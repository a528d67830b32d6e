package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"user_id", "type", "message", "is_read", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":     bson.M{"bsonType": "objectId"},
			"user_id": bson.M{"bsonType": "string", "minLength": 1},
			"type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booking_confirmed",
					"booking_cancelled",
					"booking_reminder",
					"general_update",
				},
			},
			"message":    bson.M{"bsonType": "string", "minLength": 1},
			"booking_id": bson.M{"bsonType": "string"},
			"event_id":   bson.M{"bsonType": "string"},
			"is_read":    bson.M{"bsonType": "bool"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
