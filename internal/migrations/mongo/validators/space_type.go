package validators

import "go.mongodb.org/mongo-driver/bson"

var SpaceTypeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"space_id",
			"owner_id",
			"label",
			"capacity",
			"price_per_hour",
			"currency",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"space_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"label": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  10000,
			},

			"price_per_hour": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
