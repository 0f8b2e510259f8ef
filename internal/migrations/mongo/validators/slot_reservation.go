package validators

import "go.mongodb.org/mongo-driver/bson"

var SlotReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"examiner_profile_id",
			"booking_time",
			"examination_id",
			"claimant_id",
			"reserved_at",
			"expires_at",
			"expire_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 3,
			},

			"examiner_profile_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"booking_time": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`,
			},

			"examination_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"claimant_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"reserved_at": bson.M{
				"bsonType": "long",
			},

			"expires_at": bson.M{
				"bsonType": "long",
			},

			"expire_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
