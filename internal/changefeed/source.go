package changefeed

import (
	"context"

	"github.com/lealre/community-backend/internal/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Event is one committed ledger update.
type Event struct {
	Tag         string
	ResumeToken bson.Raw
}

type Stream interface {
	Next(ctx context.Context) bool
	Event() (Event, error)
	// ResumeToken is the position of the stream, available even before the
	// first event arrives.
	ResumeToken() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

// Source opens ledger streams and persists consumer checkpoints.
type Source interface {
	Open(ctx context.Context, resumeToken bson.Raw) (Stream, error)
	LoadCheckpoint(ctx context.Context, consumer string) (bson.Raw, error)
	SaveCheckpoint(ctx context.Context, consumer string, token bson.Raw) error
	ClearCheckpoint(ctx context.Context, consumer string) error
	IsResumeFailure(err error) bool
}

type mongoSource struct {
	db *mongodb.DB
}

// NewMongoSource reads ledger updates from a MongoDB change stream.
func NewMongoSource(db *mongodb.DB) Source {
	return &mongoSource{db: db}
}

func (s *mongoSource) Open(ctx context.Context, resumeToken bson.Raw) (Stream, error) {
	cs, err := s.db.WatchReviewLedgers(ctx, resumeToken)
	if err != nil {
		return nil, err
	}
	return &mongoStream{cs: cs}, nil
}

func (s *mongoSource) LoadCheckpoint(ctx context.Context, consumer string) (bson.Raw, error) {
	return s.db.LoadCheckpoint(ctx, consumer)
}

func (s *mongoSource) SaveCheckpoint(ctx context.Context, consumer string, token bson.Raw) error {
	return s.db.SaveCheckpoint(ctx, consumer, token)
}

func (s *mongoSource) ClearCheckpoint(ctx context.Context, consumer string) error {
	return s.db.ClearCheckpoint(ctx, consumer)
}

func (s *mongoSource) IsResumeFailure(err error) bool {
	return mongodb.IsResumeFailure(err)
}

type mongoStream struct {
	cs *mongo.ChangeStream
}

func (m *mongoStream) Next(ctx context.Context) bool {
	return m.cs.Next(ctx)
}

func (m *mongoStream) Event() (Event, error) {
	var change mongodb.LedgerChangeDb
	if err := m.cs.Decode(&change); err != nil {
		return Event{}, err
	}
	return Event{Tag: change.DocumentKey.Tag, ResumeToken: m.cs.ResumeToken()}, nil
}

func (m *mongoStream) ResumeToken() bson.Raw {
	return m.cs.ResumeToken()
}

func (m *mongoStream) Err() error {
	return m.cs.Err()
}

func (m *mongoStream) Close(ctx context.Context) error {
	return m.cs.Close(ctx)
}
