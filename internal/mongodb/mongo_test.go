package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsResumeFailure(t *testing.T) {
	for _, code := range []int32{260, 280, 286} {
		err := fmt.Errorf("watch: %w", mongo.CommandError{Code: code, Message: "cannot resume"})
		require.True(t, IsResumeFailure(err), "code %d", code)
	}

	require.False(t, IsResumeFailure(mongo.CommandError{Code: 11000}))
	require.False(t, IsResumeFailure(errors.New("plain")))
	require.False(t, IsResumeFailure(nil))
}

func TestIsUnavailable(t *testing.T) {
	require.True(t, IsUnavailable(context.DeadlineExceeded))
	require.True(t, IsUnavailable(fmt.Errorf("find: %w", mongo.ErrClientDisconnected)))
	require.False(t, IsUnavailable(ErrRecordNotFound))
	require.False(t, IsUnavailable(nil))
}

func TestUserIsMemberOf(t *testing.T) {
	user := UserDb{Communities: []string{"cs101", "go"}}
	require.True(t, user.IsMemberOf("go"))
	require.False(t, user.IsMemberOf("rust"))
}

func TestInboxFind(t *testing.T) {
	inbox := InboxDb{Notifications: []NotificationDb{{Id: "a", Title: "first"}, {Id: "b", Title: "second"}}}

	n, ok := inbox.Find("b")
	require.True(t, ok)
	require.Equal(t, "second", n.Title)

	_, ok = inbox.Find("c")
	require.False(t, ok)
}

func TestJoinRequestId(t *testing.T) {
	require.Equal(t, "cs101/u1", JoinRequestId("cs101", "u1"))
	require.NotEqual(t, JoinRequestId("cs101", "u1"), JoinRequestId("cs10", "1u1"))
}
