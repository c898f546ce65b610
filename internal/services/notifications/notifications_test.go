package notifications

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/services/communities"
	"github.com/lealre/community-backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

var testMongo *testutil.Mongo

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testMongo, err = testutil.StartMongo(ctx)
	if err != nil {
		log.Fatalf("failed to start mongo: %v", err)
	}
	if err := testMongo.EnsureCollections(ctx); err != nil {
		log.Fatalf("failed to create collections: %v", err)
	}

	code := m.Run()

	testMongo.Stop(ctx)
	os.Exit(code)
}

// ===================================
// 		TEST SETUP
// ===================================

func seedUser(t *testing.T, id string, communities ...string) {
	t.Helper()
	_, err := testMongo.DB.CreateUser(context.Background(), mongodb.UserDb{
		Id:          id,
		Name:        id,
		Communities: communities,
		IsActive:    true,
	})
	require.NoError(t, err)
}

func seedCommunity(t *testing.T, tag string) {
	t.Helper()
	_, err := testMongo.DB.CreateCommunity(context.Background(), mongodb.CommunityDb{Tag: tag, Name: tag})
	require.NoError(t, err)
}

func invitation(tag string) NewNotification {
	title, body := InvitationText("alice", tag)
	return NewNotification{
		Type:        mongodb.NotificationTypeInvitation,
		Title:       title,
		MessageBody: body,
		ComTag:      tag,
		ComName:     tag,
	}
}

func inboxOf(t *testing.T, userId string) []Notification {
	t.Helper()
	inbox, err := List(testMongo.DB, context.Background(), userId)
	require.NoError(t, err)
	return inbox.Notifications
}

// ===================================
// 		TESTS
// ===================================

func TestAppend(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()

	t.Run("Generic entries are always appended", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		msg := NewNotification{Type: mongodb.NotificationTypeGeneric, Title: "Hi", MessageBody: "Welcome"}
		first, err := Append(db, ctx, "bob", msg)
		require.NoError(t, err)
		require.True(t, first.Created)
		second, err := Append(db, ctx, "bob", msg)
		require.NoError(t, err)
		require.NotEqual(t, first.Id, second.Id)

		entries := inboxOf(t, "bob")
		require.Len(t, entries, 2)
		require.Equal(t, mongodb.NotificationStatusUnread, entries[0].Status)
		require.Nil(t, entries[0].Responded)
	})

	t.Run("Unknown user is rejected", func(t *testing.T) {
		testMongo.Reset(t)

		_, err := Append(db, ctx, "ghost", invitation("cs101"))
		require.ErrorIs(t, err, ErrUnknownUser)
		require.Empty(t, inboxOf(t, "ghost"))
	})

	t.Run("Invitation to a member is rejected and nothing is written", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob", "cs101")

		_, err := Append(db, ctx, "bob", invitation("cs101"))
		require.ErrorIs(t, err, ErrAlreadyMember)
		require.Empty(t, inboxOf(t, "bob"))
	})

	t.Run("Identical pending invitation refreshes its date", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		first, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)
		require.True(t, first.Created)
		require.NotNil(t, first.Responded)
		require.False(t, *first.Responded)

		time.Sleep(5 * time.Millisecond)

		second, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)
		require.False(t, second.Created)
		require.Equal(t, first.Id, second.Id)

		entries := inboxOf(t, "bob")
		require.Len(t, entries, 1)
		require.True(t, entries[0].Date.After(first.Date))
	})

	t.Run("Invitations to different communities are separate", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		_, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)
		_, err = Append(db, ctx, "bob", invitation("go"))
		require.NoError(t, err)

		require.Len(t, inboxOf(t, "bob"), 2)
	})

	t.Run("Concurrent identical invitations produce one entry", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := Append(db, ctx, "bob", invitation("cs101"))
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		require.Len(t, inboxOf(t, "bob"), 1)
	})

	t.Run("Invitation without a community is invalid", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		req := invitation("cs101")
		req.ComTag = ""
		_, err := Append(db, ctx, "bob", req)
		require.ErrorIs(t, err, ErrInvalidNotification)
	})
}

func TestMarkReadAndRemove(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()
	testMongo.Reset(t)
	seedUser(t, "bob")

	msg := NewNotification{Type: mongodb.NotificationTypeGeneric, Title: "Hi", MessageBody: "Welcome"}
	first, err := Append(db, ctx, "bob", msg)
	require.NoError(t, err)
	second, err := Append(db, ctx, "bob", msg)
	require.NoError(t, err)

	t.Run("Mark read only touches the matching entry", func(t *testing.T) {
		require.NoError(t, MarkRead(db, ctx, "bob", second.Id))

		entries := inboxOf(t, "bob")
		require.Equal(t, mongodb.NotificationStatusUnread, entries[0].Status)
		require.Equal(t, mongodb.NotificationStatusRead, entries[1].Status)
	})

	t.Run("Mark read of an unknown id", func(t *testing.T) {
		require.ErrorIs(t, MarkRead(db, ctx, "bob", "nope"), ErrNotificationNotFound)
	})

	t.Run("Remove deletes exactly one entry", func(t *testing.T) {
		require.NoError(t, Remove(db, ctx, "bob", first.Id))

		entries := inboxOf(t, "bob")
		require.Len(t, entries, 1)
		require.Equal(t, second.Id, entries[0].Id)

		require.ErrorIs(t, Remove(db, ctx, "bob", first.Id), ErrNotificationNotFound)
	})
}

func TestAcceptInvitation(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()

	t.Run("Accepting updates membership, count and the entry together", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")
		seedCommunity(t, "cs101")

		inv, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)

		accepted, err := AcceptInvitation(db, ctx, "bob", inv.Id)
		require.NoError(t, err)
		require.Equal(t, mongodb.NotificationStatusRead, accepted.Status)
		require.True(t, *accepted.Responded)

		user, err := db.GetUserById(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []string{"cs101"}, user.Communities)

		community, err := db.GetCommunityByTag(ctx, "cs101")
		require.NoError(t, err)
		require.Equal(t, 1, community.Members)

		entries := inboxOf(t, "bob")
		require.Len(t, entries, 1)
		require.Equal(t, mongodb.NotificationStatusRead, entries[0].Status)
		require.True(t, *entries[0].Responded)

		// A second accept finds no pending invitation and changes nothing.
		_, err = AcceptInvitation(db, ctx, "bob", inv.Id)
		require.ErrorIs(t, err, ErrInvitationNotFound)

		community, err = db.GetCommunityByTag(ctx, "cs101")
		require.NoError(t, err)
		require.Equal(t, 1, community.Members)
	})

	t.Run("Missing community rolls everything back", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		inv, err := Append(db, ctx, "bob", invitation("gone"))
		require.NoError(t, err)

		_, err = AcceptInvitation(db, ctx, "bob", inv.Id)
		require.ErrorIs(t, err, ErrCommunityNotFound)

		user, err := db.GetUserById(ctx, "bob")
		require.NoError(t, err)
		require.Empty(t, user.Communities)

		entries := inboxOf(t, "bob")
		require.Equal(t, mongodb.NotificationStatusUnread, entries[0].Status)
		require.False(t, *entries[0].Responded)
	})

	t.Run("Already a member rolls everything back", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")
		seedCommunity(t, "cs101")

		inv, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)

		_, err = db.AddCommunityToUser(ctx, "bob", "cs101")
		require.NoError(t, err)

		_, err = AcceptInvitation(db, ctx, "bob", inv.Id)
		require.ErrorIs(t, err, ErrAlreadyMember)

		community, err := db.GetCommunityByTag(ctx, "cs101")
		require.NoError(t, err)
		require.Zero(t, community.Members)

		entries := inboxOf(t, "bob")
		require.False(t, *entries[0].Responded)
	})

	t.Run("Generic entries cannot be accepted", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")

		msg, err := Append(db, ctx, "bob", NewNotification{Type: mongodb.NotificationTypeGeneric, Title: "Hi", MessageBody: "Welcome"})
		require.NoError(t, err)

		_, err = AcceptInvitation(db, ctx, "bob", msg.Id)
		require.ErrorIs(t, err, ErrInvitationNotFound)
	})

	t.Run("After accepting, a new identical invitation is rejected", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "bob")
		seedCommunity(t, "cs101")

		inv, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)
		_, err = AcceptInvitation(db, ctx, "bob", inv.Id)
		require.NoError(t, err)

		_, err = Append(db, ctx, "bob", invitation("cs101"))
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("A recreated community can invite former members", func(t *testing.T) {
		testMongo.Reset(t)
		seedUser(t, "alice")
		seedUser(t, "bob")

		newCommunity := communities.NewCommunityRequest{Tag: "cs101", Name: "Intro"}
		_, err := communities.CreateCommunity(db, ctx, newCommunity, "alice")
		require.NoError(t, err)

		inv, err := Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)
		_, err = AcceptInvitation(db, ctx, "bob", inv.Id)
		require.NoError(t, err)

		require.NoError(t, communities.DeleteCommunity(db, ctx, "cs101", "alice"))
		_, err = communities.CreateCommunity(db, ctx, newCommunity, "alice")
		require.NoError(t, err)

		inv, err = Append(db, ctx, "bob", invitation("cs101"))
		require.NoError(t, err)
		require.True(t, inv.Created)
		_, err = AcceptInvitation(db, ctx, "bob", inv.Id)
		require.NoError(t, err)

		user, err := db.GetUserById(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []string{"cs101"}, user.Communities)

		community, err := db.GetCommunityByTag(ctx, "cs101")
		require.NoError(t, err)
		require.Equal(t, 1, community.Members)
	})
}
