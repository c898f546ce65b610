package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserDb struct {
	Id          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	Communities []string  `json:"communities" bson:"communities"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u UserDb) IsMemberOf(tag string) bool {
	for _, t := range u.Communities {
		if t == tag {
			return true
		}
	}
	return false
}

func (db *DB) CreateUser(ctx context.Context, user UserDb) (UserDb, error) {
	coll := db.Collection(UsersCollection)

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Communities == nil {
		user.Communities = []string{}
	}

	if _, err := coll.InsertOne(ctx, user); err != nil {
		return UserDb{}, err
	}
	return user, nil
}

func (db *DB) GetUserById(ctx context.Context, id string) (UserDb, error) {
	coll := db.Collection(UsersCollection)
	var userDb UserDb
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&userDb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return UserDb{}, ErrRecordNotFound
		}
		return UserDb{}, err
	}

	return userDb, nil
}

func (db *DB) UserExists(ctx context.Context, id string) (bool, error) {
	coll := db.Collection(UsersCollection)

	// Only ask MongoDB for the _id field
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})

	err := coll.FindOne(ctx, bson.M{"_id": id}, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddCommunityToUser appends tag to the user's memberships unless it is already
// there. It reports false when the user was already a member.
func (db *DB) AddCommunityToUser(ctx context.Context, userId, tag string) (bool, error) {
	coll := db.Collection(UsersCollection)

	result, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": userId, "communities": bson.M{"$ne": tag}},
		bson.M{
			"$push": bson.M{"communities": tag},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

// RemoveCommunityFromUsers drops tag from every member's list of communities.
func (db *DB) RemoveCommunityFromUsers(ctx context.Context, tag string) (int64, error) {
	coll := db.Collection(UsersCollection)

	result, err := coll.UpdateMany(
		ctx,
		bson.M{"communities": tag},
		bson.M{
			"$pull": bson.M{"communities": tag},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
