package communities

import (
	"context"
	"errors"
	"strings"

	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
)

// RequestToJoin files a pending request by userId to join tag. Members and
// users with a pending request are refused.
func RequestToJoin(db *mongodb.DB, ctx context.Context, tag, userId string, req NewJoinRequest) (JoinRequest, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		return JoinRequest{}, ErrInvalidJoinRequest
	}

	exists, err := db.CommunityExists(ctx, tag)
	if err != nil {
		return JoinRequest{}, err
	}
	if !exists {
		return JoinRequest{}, ErrCommunityNotFound
	}

	user, err := db.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return JoinRequest{}, ErrUnknownUser
		}
		return JoinRequest{}, err
	}
	if user.IsMemberOf(tag) {
		return JoinRequest{}, ErrAlreadyMember
	}

	created, err := db.CreateJoinRequest(ctx, mongodb.JoinRequestDb{
		Tag:     tag,
		UserId:  userId,
		Name:    user.Name,
		Message: req.Message,
	})
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return JoinRequest{}, ErrJoinRequestExists
		}
		return JoinRequest{}, err
	}

	logx.FromContext(ctx).Info().Str("tag", tag).Str("user_id", userId).Msg("join request filed")
	return MapDbJoinRequestToApiJoinRequest(created), nil
}

// ListJoinRequests returns the pending requests of tag, newest first. Only
// the admin may list them.
func ListJoinRequests(db *mongodb.DB, ctx context.Context, tag, actingUserId string) (JoinRequestsResponse, error) {
	if _, err := requireAdmin(db, ctx, tag, actingUserId); err != nil {
		return JoinRequestsResponse{}, err
	}

	requestsDb, err := db.GetJoinRequests(ctx, tag)
	if err != nil {
		return JoinRequestsResponse{}, err
	}

	resp := JoinRequestsResponse{Requests: make([]JoinRequest, 0, len(requestsDb))}
	for _, r := range requestsDb {
		resp.Requests = append(resp.Requests, MapDbJoinRequestToApiJoinRequest(r))
	}
	return resp, nil
}

// ResolveJoinRequest removes the pending request of userId and, when the
// admin approves it, adds the user as a member in the same transaction.
func ResolveJoinRequest(db *mongodb.DB, ctx context.Context, tag, actingUserId, userId string, decision HandleJoinRequest) error {
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := requireAdmin(db, txCtx, tag, actingUserId); err != nil {
			return err
		}

		deleted, err := db.DeleteJoinRequest(txCtx, tag, userId)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrJoinRequestNotFound
		}

		if !decision.Approve {
			return nil
		}
		return AddMember(db, txCtx, userId, tag)
	})
	if err != nil {
		return err
	}

	logx.FromContext(ctx).Info().
		Str("tag", tag).
		Str("user_id", userId).
		Bool("approved", decision.Approve).
		Msg("join request resolved")
	return nil
}
