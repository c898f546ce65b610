package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ----- Types for the database -----

type CommunityDb struct {
	Tag         string    `json:"tag" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Privacy     string    `json:"privacy" bson:"privacy"`
	Admin       string    `json:"admin" bson:"admin"`
	Members     int       `json:"members" bson:"members"`
	Rating      int       `json:"rating" bson:"rating"`
	ReviewCount int       `json:"reviewCount" bson:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ----- Methods for the database -----

func (db *DB) CreateCommunity(ctx context.Context, community CommunityDb) (CommunityDb, error) {
	coll := db.Collection(CommunitiesCollection)

	now := time.Now().UTC()
	community.CreatedAt = now
	community.UpdatedAt = now
	community.Rating = 0
	community.ReviewCount = 0

	if _, err := coll.InsertOne(ctx, community); err != nil {
		return CommunityDb{}, err
	}
	return community, nil
}

func (db *DB) GetCommunityByTag(ctx context.Context, tag string) (CommunityDb, error) {
	coll := db.Collection(CommunitiesCollection)

	var community CommunityDb
	err := coll.FindOne(ctx, bson.M{"_id": tag}).Decode(&community)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return CommunityDb{}, ErrRecordNotFound
		}
		return CommunityDb{}, err
	}
	return community, nil
}

func (db *DB) CommunityExists(ctx context.Context, tag string) (bool, error) {
	coll := db.Collection(CommunitiesCollection)

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})

	err := coll.FindOne(ctx, bson.M{"_id": tag}, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (db *DB) DeleteCommunity(ctx context.Context, tag string) (bool, error) {
	coll := db.Collection(CommunitiesCollection)

	result, err := coll.DeleteOne(ctx, bson.M{"_id": tag})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (db *DB) GetCommunities(ctx context.Context, args ...any) ([]CommunityDb, error) {
	coll := db.Collection(CommunitiesCollection)

	filter, opts := ResolveFilterAndOptionsSearch(args...)
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return []CommunityDb{}, err
	}
	defer cursor.Close(ctx)

	communities := []CommunityDb{}
	if err := cursor.All(ctx, &communities); err != nil {
		return []CommunityDb{}, err
	}
	return communities, nil
}

func (db *DB) IncrementCommunityMembers(ctx context.Context, tag string) error {
	coll := db.Collection(CommunitiesCollection)

	result, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": tag},
		bson.M{
			"$inc": bson.M{"members": 1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetCommunityRating stores a rating computed from a ledger of reviewCount
// entries. The ledger only grows, so a write computed from fewer reviews than
// the stored one is stale and skipped. It reports whether the document matched.
func (db *DB) SetCommunityRating(ctx context.Context, tag string, rating, reviewCount int) (bool, error) {
	coll := db.Collection(CommunitiesCollection)

	filter := bson.M{
		"_id": tag,
		"$or": []bson.M{
			{"reviewCount": bson.M{"$lte": reviewCount}},
			{"reviewCount": bson.M{"$exists": false}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"rating":      rating,
			"reviewCount": reviewCount,
			"updatedAt":   time.Now().UTC(),
		},
	}

	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}
