package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_id",
			"space_type_id",
			"owner_id",
			"start_time",
			"end_time",
			"amount",
			"currency",
			"state",
			"hold_id",
			"hold_expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"space_type_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"amount": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"state": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_approval",
					"pending_payment",
					"rejected",
					"paid",
					"payment_failed",
					"expired",
				},
			},

			"hold_id": bson.M{
				"bsonType": "string",
			},

			"payment_ref": bson.M{
				"bsonType": "string",
			},

			"hold_expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
