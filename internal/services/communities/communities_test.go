package communities

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

// ===================================
// 		TEST SETUP
// ===================================

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

func createUser(t *testing.T, id string) {
	t.Helper()
	_, err := testMongo.DB.CreateUser(context.Background(), mongodb.UserDb{Id: id, Name: id, IsActive: true})
	require.NoError(t, err)
}

func addMember(t *testing.T, userId, tag string) {
	t.Helper()
	err := testMongo.DB.WithTransaction(context.Background(), func(txCtx context.Context) error {
		return AddMember(testMongo.DB, txCtx, userId, tag)
	})
	require.NoError(t, err)
}

// ===================================
// 		TESTS
// ===================================

func TestCreateCommunity(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()

	t.Run("Creates the community and an empty ledger", func(t *testing.T) {
		testMongo.Reset(t)

		community, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "Intro to CS"}, "u1")
		require.NoError(t, err)
		require.Equal(t, "cs101", community.Tag)
		require.Equal(t, PrivacyPublic, community.Privacy)
		require.Equal(t, "u1", community.Admin)
		require.Zero(t, community.Rating)

		ledger, err := db.GetReviewLedger(ctx, "cs101")
		require.NoError(t, err)
		require.Empty(t, ledger.Reviews)
	})

	t.Run("Duplicate tag", func(t *testing.T) {
		testMongo.Reset(t)

		_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "a"}, "u1")
		require.NoError(t, err)
		_, err = CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "b"}, "u1")
		require.ErrorIs(t, err, ErrCommunityExists)

		community, err := GetCommunity(db, ctx, "cs101")
		require.NoError(t, err)
		require.Equal(t, "a", community.Name)
	})

	t.Run("Invalid requests", func(t *testing.T) {
		_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "", Name: "x"}, "u1")
		require.ErrorIs(t, err, ErrInvalidCommunity)

		_, err = CreateCommunity(db, ctx, NewCommunityRequest{Tag: "has space", Name: "x"}, "u1")
		require.ErrorIs(t, err, ErrInvalidTag)

		_, err = CreateCommunity(db, ctx, NewCommunityRequest{Tag: "ok", Name: "x", Privacy: "secret"}, "u1")
		require.ErrorIs(t, err, ErrInvalidCommunity)
	})
}

func TestDeleteCommunity(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()

	t.Run("Removes the community everywhere", func(t *testing.T) {
		testMongo.Reset(t)
		createUser(t, "admin")
		createUser(t, "member")
		createUser(t, "applicant")

		_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "Intro"}, "admin")
		require.NoError(t, err)
		_, err = CreateCommunity(db, ctx, NewCommunityRequest{Tag: "go", Name: "Go"}, "admin")
		require.NoError(t, err)
		addMember(t, "member", "cs101")
		addMember(t, "member", "go")
		_, err = RequestToJoin(db, ctx, "cs101", "applicant", NewJoinRequest{})
		require.NoError(t, err)

		require.NoError(t, DeleteCommunity(db, ctx, "cs101", "admin"))

		_, err = GetCommunity(db, ctx, "cs101")
		require.ErrorIs(t, err, ErrCommunityNotFound)

		exists, err := db.ReviewLedgerExists(ctx, "cs101")
		require.NoError(t, err)
		require.False(t, exists)

		member, err := db.GetUserById(ctx, "member")
		require.NoError(t, err)
		require.Equal(t, []string{"go"}, member.Communities)

		pending, err := db.GetJoinRequests(ctx, "cs101")
		require.NoError(t, err)
		require.Empty(t, pending)

		require.ErrorIs(t, DeleteCommunity(db, ctx, "cs101", "admin"), ErrCommunityNotFound)

		// A community recreated under the same tag starts without members.
		_, err = CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "Intro again"}, "admin")
		require.NoError(t, err)
		addMember(t, "member", "cs101")

		community, err := GetCommunity(db, ctx, "cs101")
		require.NoError(t, err)
		require.Equal(t, 1, community.Members)
	})

	t.Run("Only the admin can delete", func(t *testing.T) {
		testMongo.Reset(t)
		createUser(t, "admin")
		createUser(t, "other")

		_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "Intro"}, "admin")
		require.NoError(t, err)

		require.ErrorIs(t, DeleteCommunity(db, ctx, "cs101", "other"), ErrNotCommunityAdmin)
		require.ErrorIs(t, DeleteCommunity(db, ctx, "cs101", ""), ErrNotCommunityAdmin)

		_, err = GetCommunity(db, ctx, "cs101")
		require.NoError(t, err)
	})
}

func TestGetTopCommunities(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()
	testMongo.Reset(t)

	for _, tag := range []string{"a", "b", "c", "d"} {
		_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: tag, Name: tag}, "u1")
		require.NoError(t, err)
	}
	_, err := db.SetCommunityRating(ctx, "a", 3, 2)
	require.NoError(t, err)
	_, err = db.SetCommunityRating(ctx, "b", 5, 1)
	require.NoError(t, err)
	_, err = db.SetCommunityRating(ctx, "c", 3, 7)
	require.NoError(t, err)

	top, err := GetTopCommunities(db, ctx, 0)
	require.NoError(t, err)

	tags := []string{}
	for _, c := range top.Communities {
		tags = append(tags, c.Tag)
	}
	require.Equal(t, []string{"b", "c", "a"}, tags)

	top, err = GetTopCommunities(db, ctx, 1)
	require.NoError(t, err)
	require.Len(t, top.Communities, 1)
}

func TestAddMember(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()
	testMongo.Reset(t)
	createUser(t, "u1")

	_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "Intro"}, "u1")
	require.NoError(t, err)

	addMember(t, "u1", "cs101")

	err = db.WithTransaction(ctx, func(txCtx context.Context) error {
		return AddMember(db, txCtx, "u1", "cs101")
	})
	require.ErrorIs(t, err, ErrAlreadyMember)

	err = db.WithTransaction(ctx, func(txCtx context.Context) error {
		return AddMember(db, txCtx, "ghost", "cs101")
	})
	require.ErrorIs(t, err, ErrUnknownUser)

	err = db.WithTransaction(ctx, func(txCtx context.Context) error {
		return AddMember(db, txCtx, "u1", "missing")
	})
	require.ErrorIs(t, err, ErrCommunityNotFound)

	user, err := db.GetUserById(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"cs101"}, user.Communities)

	community, err := GetCommunity(db, ctx, "cs101")
	require.NoError(t, err)
	require.Equal(t, 1, community.Members)
}

func TestJoinRequests(t *testing.T) {
	db := testMongo.DB
	ctx := context.Background()

	setup := func(t *testing.T) {
		testMongo.Reset(t)
		createUser(t, "admin")
		createUser(t, "bob")
		createUser(t, "carol")
		_, err := CreateCommunity(db, ctx, NewCommunityRequest{Tag: "cs101", Name: "Intro"}, "admin")
		require.NoError(t, err)
	}

	t.Run("Approving adds the member and removes the request", func(t *testing.T) {
		setup(t)

		req, err := RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{Message: "  hi  "})
		require.NoError(t, err)
		require.Equal(t, "bob", req.Name)
		require.Equal(t, "hi", req.Message)

		_, err = RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{})
		require.ErrorIs(t, err, ErrJoinRequestExists)

		require.NoError(t, ResolveJoinRequest(db, ctx, "cs101", "admin", "bob", HandleJoinRequest{Approve: true}))

		user, err := db.GetUserById(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, []string{"cs101"}, user.Communities)

		community, err := GetCommunity(db, ctx, "cs101")
		require.NoError(t, err)
		require.Equal(t, 1, community.Members)

		pending, err := ListJoinRequests(db, ctx, "cs101", "admin")
		require.NoError(t, err)
		require.Empty(t, pending.Requests)

		_, err = RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{})
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("Rejecting only removes the request", func(t *testing.T) {
		setup(t)

		_, err := RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{})
		require.NoError(t, err)

		require.NoError(t, ResolveJoinRequest(db, ctx, "cs101", "admin", "bob", HandleJoinRequest{Approve: false}))
		require.ErrorIs(t, ResolveJoinRequest(db, ctx, "cs101", "admin", "bob", HandleJoinRequest{Approve: true}), ErrJoinRequestNotFound)

		community, err := GetCommunity(db, ctx, "cs101")
		require.NoError(t, err)
		require.Zero(t, community.Members)

		// A rejected user may ask again.
		_, err = RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{})
		require.NoError(t, err)
	})

	t.Run("Pending requests are listed newest first for the admin only", func(t *testing.T) {
		setup(t)

		_, err := RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = RequestToJoin(db, ctx, "cs101", "carol", NewJoinRequest{})
		require.NoError(t, err)

		pending, err := ListJoinRequests(db, ctx, "cs101", "admin")
		require.NoError(t, err)
		require.Len(t, pending.Requests, 2)
		require.Equal(t, "carol", pending.Requests[0].UserId)
		require.Equal(t, "bob", pending.Requests[1].UserId)

		_, err = ListJoinRequests(db, ctx, "cs101", "bob")
		require.ErrorIs(t, err, ErrNotCommunityAdmin)

		err = ResolveJoinRequest(db, ctx, "cs101", "bob", "carol", HandleJoinRequest{Approve: true})
		require.ErrorIs(t, err, ErrNotCommunityAdmin)

		_, err = ListJoinRequests(db, ctx, "missing", "admin")
		require.ErrorIs(t, err, ErrCommunityNotFound)
	})

	t.Run("Invalid requests", func(t *testing.T) {
		setup(t)

		_, err := RequestToJoin(db, ctx, "missing", "bob", NewJoinRequest{})
		require.ErrorIs(t, err, ErrCommunityNotFound)

		_, err = RequestToJoin(db, ctx, "cs101", "ghost", NewJoinRequest{})
		require.ErrorIs(t, err, ErrUnknownUser)

		_, err = RequestToJoin(db, ctx, "cs101", "bob", NewJoinRequest{Message: strings.Repeat("x", 501)})
		require.ErrorIs(t, err, ErrInvalidJoinRequest)
	})
}
