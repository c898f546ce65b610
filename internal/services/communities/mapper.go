package communities

import "github.com/lealre/community-backend/internal/mongodb"

func MapDbCommunityToApiCommunity(c mongodb.CommunityDb) Community {
	return Community{
		Tag:         c.Tag,
		Name:        c.Name,
		Description: c.Description,
		Privacy:     c.Privacy,
		Admin:       c.Admin,
		Members:     c.Members,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func MapDbJoinRequestToApiJoinRequest(r mongodb.JoinRequestDb) JoinRequest {
	return JoinRequest{
		Tag:     r.Tag,
		UserId:  r.UserId,
		Name:    r.Name,
		Message: r.Message,
		Date:    r.Date,
	}
}
