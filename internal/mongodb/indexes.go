package mongodb

import (
	"context"
	"fmt"

	"github.com/lealre/community-backend/internal/logx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeleteAllIndexes deletes all indexes from all collections in the database
// (except the default _id_ index which cannot be deleted)
func DeleteAllIndexes(ctx context.Context, db *mongo.Database) error {
	// Get all collections in the database
	collections, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, collName := range collections {
		coll := db.Collection(collName)

		// List all indexes for this collection
		cursor, err := coll.Indexes().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list indexes for collection '%s': %w", collName, err)
		}

		// Iterate through indexes and delete them (except _id_ which is the default and cannot be deleted)
		for cursor.Next(ctx) {
			var index bson.M
			if err := cursor.Decode(&index); err != nil {
				cursor.Close(ctx)
				return fmt.Errorf("failed to decode index for collection '%s': %w", collName, err)
			}

			indexName, ok := index["name"].(string)
			if !ok {
				continue
			}

			// Skip the default _id_ index as it cannot be deleted
			if indexName == "_id_" {
				continue
			}

			// Delete the index
			_, err := coll.Indexes().DropOne(ctx, indexName)
			if err != nil {
				cursor.Close(ctx)
				return fmt.Errorf("failed to delete index '%s' from collection '%s': %w", indexName, collName, err)
			}
			logx.Logger().Info().Str("index", indexName).Str("collection", collName).Msg("deleted index")
		}

		if err := cursor.Err(); err != nil {
			cursor.Close(ctx)
			return fmt.Errorf("cursor error for collection '%s': %w", collName, err)
		}
		cursor.Close(ctx)
	}

	return nil
}

// CreateAllIndexes creates all indexes for users, communities and join requests collections
func CreateAllIndexes(ctx context.Context, db *mongo.Database, reset bool) error {
	// Create indexes for users collection
	if err := CreateUserIndexes(ctx, db, reset); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	// Create indexes for communities collection
	if err := CreateCommunityIndexes(ctx, db, reset); err != nil {
		return fmt.Errorf("failed to create community indexes: %w", err)
	}

	// Create indexes for join requests collection
	if err := CreateJoinRequestIndexes(ctx, db, reset); err != nil {
		return fmt.Errorf("failed to create join request indexes: %w", err)
	}

	return nil
}

// CreateUserIndexes creates indexes for the users collection
func CreateUserIndexes(ctx context.Context, db *mongo.Database, reset bool) error {
	coll := db.Collection(UsersCollection)
	usersEmailIndexName := "email_unique"

	// Create unique index on email (case-insensitive)
	// Exclude empty strings and null values from uniqueness constraint
	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName(usersEmailIndexName).
			SetCollation(&options.Collation{
				Locale:   "en",
				Strength: 2,
			}).
			SetPartialFilterExpression(bson.M{
				"$and": []bson.M{
					{"email": bson.M{"$type": "string"}},
					{"email": bson.M{"$gt": ""}},
				},
			}),
	}
	if err := createIndexIfNotExists(ctx, coll, emailIndex, usersEmailIndexName, reset); err != nil {
		return err
	}

	// Membership lookups by community tag
	usersCommunitiesIndexName := "communities"
	communitiesIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "communities", Value: 1}},
		Options: options.Index().SetName(usersCommunitiesIndexName),
	}
	if err := createIndexIfNotExists(ctx, coll, communitiesIndex, usersCommunitiesIndexName, reset); err != nil {
		return err
	}

	return nil
}

// CreateCommunityIndexes creates indexes for the communities collection
func CreateCommunityIndexes(ctx context.Context, db *mongo.Database, reset bool) error {
	coll := db.Collection(CommunitiesCollection)
	communitiesRatingIndexName := "rating_desc"

	// Top communities are listed by rating
	ratingIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "rating", Value: -1}, {Key: "reviewCount", Value: -1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName(communitiesRatingIndexName),
	}
	if err := createIndexIfNotExists(ctx, coll, ratingIndex, communitiesRatingIndexName, reset); err != nil {
		return err
	}

	return nil
}

// CreateJoinRequestIndexes creates indexes for the join requests collection
func CreateJoinRequestIndexes(ctx context.Context, db *mongo.Database, reset bool) error {
	coll := db.Collection(JoinRequestsCollection)
	joinRequestsTagIndexName := "tag_date_desc"

	// Requests are listed per community, newest first
	tagIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "tag", Value: 1}, {Key: "date", Value: -1}},
		Options: options.Index().SetName(joinRequestsTagIndexName),
	}
	if err := createIndexIfNotExists(ctx, coll, tagIndex, joinRequestsTagIndexName, reset); err != nil {
		return err
	}

	return nil
}

// createIndexIfNotExists checks if an index exists and creates it if it doesn't
// If reset is true, it will delete the existing index and recreate it
func createIndexIfNotExists(ctx context.Context, coll *mongo.Collection, indexModel mongo.IndexModel, indexName string, reset bool) error {
	// List existing indexes
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}
	defer cursor.Close(ctx)

	// Check if index already exists
	indexExists := false
	for cursor.Next(ctx) {
		var index bson.M
		if err := cursor.Decode(&index); err != nil {
			return fmt.Errorf("failed to decode index: %w", err)
		}

		if name, ok := index["name"].(string); ok && name == indexName {
			indexExists = true
			break
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}

	if indexExists {
		if !reset {
			logx.Logger().Debug().Str("index", indexName).Str("collection", coll.Name()).Msg("index already exists, skipping")
			return nil
		}
		// Delete the existing index
		_, err := coll.Indexes().DropOne(ctx, indexName)
		if err != nil {
			return fmt.Errorf("failed to delete index '%s': %w", indexName, err)
		}
		logx.Logger().Info().Str("index", indexName).Str("collection", coll.Name()).Msg("deleted index")
	}

	// Create the index
	_, err = coll.Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		return fmt.Errorf("failed to create index '%s': %w", indexName, err)
	}

	logx.Logger().Info().Str("index", indexName).Str("collection", coll.Name()).Msg("created index")
	return nil
}
