package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = []string{"int", "long"}

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"provider_uid",
			"scheduled_at",
			"duration_minutes",
			"invite_only",
			"status",
			"title",
			"price",
			"max_participants",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"provider_uid": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"scheduled_at": bson.M{
				"bsonType": "date",
			},

			"duration_minutes": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"invite_only": bson.M{
				"bsonType": "bool",
			},

			"allowed_uids": bson.M{
				"bsonType":    "array",
				"maxItems":    500,
				"uniqueItems": true,
				"items": bson.M{
					"bsonType":  "string",
					"minLength": 1,
					"maxLength": 128,
				},
			},

			"min_rank": bson.M{
				"enum": []string{"verified", "signature", "top5"},
			},

			"status": bson.M{
				"enum": []string{"available", "booked", "cancelled"},
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 120,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"price": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"location": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"max_participants": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  200,
			},

			"booked_by": bson.M{
				"bsonType":  "string",
				"maxLength": 128,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

// SlotClaimValidator guards the claim ledger. _id is the claim key, so a
// second claim on the same provider and instant fails on the primary key.
var SlotClaimValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"slot_id",
			"provider_uid",
			"booker_uid",
			"scheduled_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  "^claim_.+_-?[0-9]+$",
			},
			"slot_id":      bson.M{"bsonType": "string"},
			"provider_uid": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 128},
			"booker_uid":   bson.M{"bsonType": "string", "minLength": 1, "maxLength": 128},
			"scheduled_at": bson.M{"bsonType": "date"},
			"created_at":   bson.M{"bsonType": "date"},
		},
	},
}
