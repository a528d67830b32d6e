package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = []string{"int", "long"}

var civilDate = bson.M{
	"bsonType": "string",
	"pattern":  `^\d{4}-\d{2}-\d{2}$`,
}

var timeOfDay = bson.M{
	"bsonType": "string",
	"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"restaurant_id",
			"date",
			"time",
			"party_size",
			"table_size",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_email": bson.M{
				"bsonType": "string",
			},

			"restaurant_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"date": civilDate,
			"time": timeOfDay,

			"party_size": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"table_size": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
