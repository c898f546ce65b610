package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Server error codes returned when a change stream cannot be resumed from the
// token it was given.
const (
	codeInvalidResumeToken      = 260
	codeChangeStreamFatalError  = 280
	codeChangeStreamHistoryLost = 286
)

// LedgerChangeDb is the shape of a change event on the reviews collection.
type LedgerChangeDb struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		Tag string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *ReviewLedgerDb `bson:"fullDocument"`
}

// WatchReviewLedgers opens a change stream over ledger updates. Inserts (a new
// empty ledger) and deletes are filtered out on the server. When resumeToken is
// not nil the stream starts right after that event.
func (db *DB) WatchReviewLedgers(ctx context.Context, resumeToken bson.Raw) (*mongo.ChangeStream, error) {
	coll := db.Collection(ReviewsCollection)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "update"}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if resumeToken != nil {
		opts.SetStartAfter(resumeToken)
	}

	return coll.Watch(ctx, pipeline, opts)
}

// IsResumeFailure reports whether err means the stored resume token can no
// longer be used, so the consumer has to start over without it.
func IsResumeFailure(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeInvalidResumeToken) ||
		se.HasErrorCode(codeChangeStreamFatalError) ||
		se.HasErrorCode(codeChangeStreamHistoryLost)
}
