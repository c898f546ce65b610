package communities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/services/reviews"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateCommunity stores the community together with its empty review
// ledger. The creator becomes the community admin.
func CreateCommunity(db *mongodb.DB, ctx context.Context, req NewCommunityRequest, adminId string) (Community, error) {
	req.Tag = strings.TrimSpace(req.Tag)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return Community{}, ErrInvalidCommunity
	}
	if !IsValidTag(req.Tag) {
		return Community{}, ErrInvalidTag
	}
	if req.Privacy == "" {
		req.Privacy = PrivacyPublic
	}

	var created mongodb.CommunityDb
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created, err = db.CreateCommunity(txCtx, mongodb.CommunityDb{
			Tag:         req.Tag,
			Name:        req.Name,
			Description: req.Description,
			Privacy:     req.Privacy,
			Admin:       adminId,
		})
		if err != nil {
			return err
		}
		return reviews.CreateLedger(db, txCtx, req.Tag)
	})
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return Community{}, ErrCommunityExists
		}
		return Community{}, err
	}

	logx.FromContext(ctx).Info().Str("tag", created.Tag).Msg("community created")
	return MapDbCommunityToApiCommunity(created), nil
}

func GetCommunity(db *mongodb.DB, ctx context.Context, tag string) (Community, error) {
	community, err := db.GetCommunityByTag(ctx, tag)
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return Community{}, ErrCommunityNotFound
		}
		return Community{}, err
	}
	return MapDbCommunityToApiCommunity(community), nil
}

// DeleteCommunity removes the community, its ledger and its pending join
// requests, and drops the tag from every member, all in one transaction. Only
// the admin may delete a community. Events already in flight for it become
// no-ops in the aggregator.
func DeleteCommunity(db *mongodb.DB, ctx context.Context, tag, actingUserId string) error {
	var removedFrom int64
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := requireAdmin(db, txCtx, tag, actingUserId); err != nil {
			return err
		}

		deleted, err := db.DeleteCommunity(txCtx, tag)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrCommunityNotFound
		}
		if err := reviews.DeleteLedger(db, txCtx, tag); err != nil {
			return err
		}
		if _, err := db.DeleteJoinRequestsByTag(txCtx, tag); err != nil {
			return fmt.Errorf("delete join requests: %w", err)
		}

		removedFrom, err = db.RemoveCommunityFromUsers(txCtx, tag)
		if err != nil {
			return fmt.Errorf("remove memberships: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logx.FromContext(ctx).Info().
		Str("tag", tag).
		Int64("members_removed", removedFrom).
		Msg("community deleted")
	return nil
}

// AddMember records userId as a member of tag and bumps the member count. It
// must run inside a transaction.
func AddMember(db *mongodb.DB, ctx context.Context, userId, tag string) error {
	added, err := db.AddCommunityToUser(ctx, userId, tag)
	if err != nil {
		return fmt.Errorf("add membership: %w", err)
	}
	if !added {
		exists, err := db.UserExists(ctx, userId)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUnknownUser
		}
		return ErrAlreadyMember
	}

	if err := db.IncrementCommunityMembers(ctx, tag); err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return ErrCommunityNotFound
		}
		return fmt.Errorf("increment members: %w", err)
	}
	return nil
}

func requireAdmin(db *mongodb.DB, ctx context.Context, tag, userId string) (mongodb.CommunityDb, error) {
	community, err := db.GetCommunityByTag(ctx, tag)
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return mongodb.CommunityDb{}, ErrCommunityNotFound
		}
		return mongodb.CommunityDb{}, err
	}
	if community.Admin == "" || community.Admin != userId {
		return mongodb.CommunityDb{}, ErrNotCommunityAdmin
	}
	return community, nil
}

// GetTopCommunities returns the best rated communities, most reviewed first
// among equal ratings.
func GetTopCommunities(db *mongodb.DB, ctx context.Context, limit int) (CommunitiesResponse, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	limit = min(limit, MaxTopLimit)

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "reviewCount", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	communitiesDb, err := db.GetCommunities(ctx, bson.M{}, opts)
	if err != nil {
		return CommunitiesResponse{}, err
	}

	resp := CommunitiesResponse{Communities: make([]Community, 0, len(communitiesDb))}
	for _, c := range communitiesDb {
		resp.Communities = append(resp.Communities, MapDbCommunityToApiCommunity(c))
	}
	return resp, nil
}
