package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ----- Types for the database -----

// JoinRequestDb is a pending request by a user to join a community. The id
// is derived from the tag and the user so a user holds at most one request
// per community.
type JoinRequestDb struct {
	Id      string    `json:"id" bson:"_id"`
	Tag     string    `json:"tag" bson:"tag"`
	UserId  string    `json:"userId" bson:"userId"`
	Name    string    `json:"name" bson:"name"`
	Message string    `json:"message" bson:"message"`
	Date    time.Time `json:"date" bson:"date"`
}

func JoinRequestId(tag, userId string) string {
	return tag + "/" + userId
}

// ----- Methods for the database -----

// CreateJoinRequest fails with a duplicate key error when the user already
// has a pending request for the community.
func (db *DB) CreateJoinRequest(ctx context.Context, req JoinRequestDb) (JoinRequestDb, error) {
	coll := db.Collection(JoinRequestsCollection)

	req.Id = JoinRequestId(req.Tag, req.UserId)
	req.Date = time.Now().UTC()

	if _, err := coll.InsertOne(ctx, req); err != nil {
		return JoinRequestDb{}, err
	}
	return req, nil
}

// GetJoinRequests lists the pending requests of a community, newest first.
func (db *DB) GetJoinRequests(ctx context.Context, tag string) ([]JoinRequestDb, error) {
	coll := db.Collection(JoinRequestsCollection)

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{"tag": tag}, opts)
	if err != nil {
		return []JoinRequestDb{}, err
	}
	defer cursor.Close(ctx)

	requests := []JoinRequestDb{}
	if err := cursor.All(ctx, &requests); err != nil {
		return []JoinRequestDb{}, err
	}
	return requests, nil
}

func (db *DB) DeleteJoinRequest(ctx context.Context, tag, userId string) (bool, error) {
	coll := db.Collection(JoinRequestsCollection)

	result, err := coll.DeleteOne(ctx, bson.M{"_id": JoinRequestId(tag, userId)})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (db *DB) DeleteJoinRequestsByTag(ctx context.Context, tag string) (int64, error) {
	coll := db.Collection(JoinRequestsCollection)

	result, err := coll.DeleteMany(ctx, bson.M{"tag": tag})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
