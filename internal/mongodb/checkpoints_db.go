package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CheckpointDb struct {
	Consumer    string    `bson:"_id"`
	ResumeToken bson.Raw  `bson:"resumeToken"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// LoadCheckpoint returns the last resume token saved by consumer, or nil when
// there is none.
func (db *DB) LoadCheckpoint(ctx context.Context, consumer string) (bson.Raw, error) {
	coll := db.Collection(CheckpointsCollection)

	var checkpoint CheckpointDb
	if err := coll.FindOne(ctx, bson.M{"_id": consumer}).Decode(&checkpoint); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return checkpoint.ResumeToken, nil
}

func (db *DB) SaveCheckpoint(ctx context.Context, consumer string, token bson.Raw) error {
	coll := db.Collection(CheckpointsCollection)

	_, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": consumer},
		bson.M{"$set": bson.M{"resumeToken": token, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (db *DB) ClearCheckpoint(ctx context.Context, consumer string) error {
	coll := db.Collection(CheckpointsCollection)

	_, err := coll.DeleteOne(ctx, bson.M{"_id": consumer})
	return err
}
