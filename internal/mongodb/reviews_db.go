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

type ReviewDb struct {
	ReviewerId string    `json:"reviewerId" bson:"reviewerId"`
	Name       string    `json:"name" bson:"name"`
	Rating     int       `json:"rating" bson:"rating"`
	Feedback   string    `json:"feedback" bson:"feedback"`
	Date       time.Time `json:"date" bson:"date"`
}

// ReviewLedgerDb holds every review of one community. It is keyed by the
// community tag and only ever grows.
type ReviewLedgerDb struct {
	Tag       string     `json:"tag" bson:"_id"`
	Reviews   []ReviewDb `json:"reviews" bson:"reviews"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// ----- Methods for the database -----

func (db *DB) CreateReviewLedger(ctx context.Context, tag string) error {
	coll := db.Collection(ReviewsCollection)

	now := time.Now().UTC()
	_, err := coll.InsertOne(ctx, ReviewLedgerDb{
		Tag:       tag,
		Reviews:   []ReviewDb{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}

// AppendReview pushes review onto the ledger of tag unless the reviewer already
// has an entry there. It reports false when nothing was appended, either because
// the reviewer is a duplicate or because the ledger does not exist.
func (db *DB) AppendReview(ctx context.Context, tag string, review ReviewDb) (bool, error) {
	coll := db.Collection(ReviewsCollection)

	filter := bson.M{"_id": tag, "reviews.reviewerId": bson.M{"$ne": review.ReviewerId}}
	update := bson.M{
		"$push": bson.M{"reviews": review},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

func (db *DB) GetReviewLedger(ctx context.Context, tag string) (ReviewLedgerDb, error) {
	coll := db.Collection(ReviewsCollection)

	var ledger ReviewLedgerDb
	if err := coll.FindOne(ctx, bson.M{"_id": tag}).Decode(&ledger); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ReviewLedgerDb{}, ErrRecordNotFound
		}
		return ReviewLedgerDb{}, err
	}
	return ledger, nil
}

func (db *DB) ReviewLedgerExists(ctx context.Context, tag string) (bool, error) {
	coll := db.Collection(ReviewsCollection)

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

func (db *DB) DeleteReviewLedger(ctx context.Context, tag string) (bool, error) {
	coll := db.Collection(ReviewsCollection)

	result, err := coll.DeleteOne(ctx, bson.M{"_id": tag})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// GetReviewLedgerTags returns the tag of every ledger, using a projection to
// keep memory usage low.
func (db *DB) GetReviewLedgerTags(ctx context.Context) ([]string, error) {
	coll := db.Collection(ReviewsCollection)

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tags []string
	for cursor.Next(ctx) {
		var doc struct {
			Tag string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		tags = append(tags, doc.Tag)
	}

	return tags, cursor.Err()
}
