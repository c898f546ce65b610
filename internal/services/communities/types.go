package communities

import "time"

const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

type Community struct {
	Tag         string    `json:"tag"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Privacy     string    `json:"privacy"`
	Admin       string    `json:"admin"`
	Members     int       `json:"members"`
	Rating      int       `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewCommunityRequest carries no rating; ratings are derived from reviews.
type NewCommunityRequest struct {
	Tag         string `json:"tag" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Privacy     string `json:"privacy" validate:"omitempty,oneof=public private"`
}

type CommunitiesResponse struct {
	Communities []Community `json:"communities"`
}

type JoinRequest struct {
	Tag     string    `json:"tag"`
	UserId  string    `json:"userId"`
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

type NewJoinRequest struct {
	Message string `json:"message" validate:"max=500"`
}

type JoinRequestsResponse struct {
	Requests []JoinRequest `json:"requests"`
}

// HandleJoinRequest is the admin's decision on a pending request.
type HandleJoinRequest struct {
	Approve bool `json:"approve"`
}
