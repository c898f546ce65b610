package users

import "time"

type User struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Communities []string  `json:"communities"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewUserRequest registers a user known to the identity provider. Id is the
// subject of the user's tokens; a random id is assigned when it is empty.
type NewUserRequest struct {
	Id    string `json:"id" validate:"omitempty,max=64"`
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"omitempty,max=254"`
}
