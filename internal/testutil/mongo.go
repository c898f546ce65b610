// Package testutil starts throwaway backing services for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TestDbName = "testDb"

type Mongo struct {
	Client    *mongo.Client
	DB        *mongodb.DB
	container *tcmongo.MongoDBContainer
}

// StartMongo runs a single node replica set so change streams and
// transactions are available to the tests.
func StartMongo(ctx context.Context) (*Mongo, error) {
	container, err := tcmongo.Run(ctx, "mongo:7.0", tcmongo.WithReplicaSet("rs0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to get mongo endpoint: %w", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetDirect(true))
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to connect to test mongo: %w", err)
	}

	db := mongodb.NewDB(client, TestDbName)
	if err := db.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to ping test mongo: %w", err)
	}

	return &Mongo{Client: client, DB: db, container: container}, nil
}

func (m *Mongo) Stop(ctx context.Context) {
	_ = m.Client.Disconnect(ctx)
	_ = testcontainers.TerminateContainer(m.container)
}

// Reset empties every collection but keeps the collections themselves.
func (m *Mongo) Reset(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	database := m.Client.Database(TestDbName)

	collections, err := database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		t.Fatalf("failed to list collections: %v", err)
	}

	for _, coll := range collections {
		if _, err := database.Collection(coll).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("failed to clear collection %s: %v", coll, err)
		}
	}
}

// EnsureCollections creates the collections written inside transactions.
func (m *Mongo) EnsureCollections(ctx context.Context) error {
	database := m.Client.Database(TestDbName)
	existing, err := database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, name := range []string{
		mongodb.UsersCollection,
		mongodb.CommunitiesCollection,
		mongodb.ReviewsCollection,
		mongodb.NotificationsCollection,
		mongodb.CheckpointsCollection,
		mongodb.JoinRequestsCollection,
	} {
		if have[name] {
			continue
		}
		if err := database.CreateCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
