package users

import "github.com/lealre/community-backend/internal/mongodb"

func MapDbUserToApiUser(userDb mongodb.UserDb) User {
	communities := userDb.Communities
	if communities == nil {
		communities = []string{}
	}
	return User{
		Id:          userDb.Id,
		Name:        userDb.Name,
		Email:       userDb.Email,
		Communities: communities,
		IsActive:    userDb.IsActive,
		CreatedAt:   userDb.CreatedAt,
		UpdatedAt:   userDb.UpdatedAt,
	}
}
