package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lealre/community-backend/internal/mongodb"
)

func CreateUser(db *mongodb.DB, ctx context.Context, req NewUserRequest) (User, error) {
	req.Id = strings.TrimSpace(req.Id)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if err := validate.Struct(req); err != nil {
		return User{}, ErrInvalidUser
	}
	if req.Email != "" && !IsValidEmail(req.Email) {
		return User{}, ErrInvalidEmail
	}
	if req.Id == "" {
		req.Id = uuid.NewString()
	} else if !IsValidUserId(req.Id) {
		return User{}, ErrInvalidUserId
	}

	userDb, err := db.CreateUser(ctx, mongodb.UserDb{
		Id:       req.Id,
		Name:     req.Name,
		Email:    req.Email,
		IsActive: true,
	})
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return User{}, ErrUserAlreadyExists
		}
		return User{}, err
	}

	return MapDbUserToApiUser(userDb), nil
}

func GetUserById(db *mongodb.DB, ctx context.Context, id string) (User, error) {
	userDb, err := db.GetUserById(ctx, id)
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return MapDbUserToApiUser(userDb), nil
}

// CheckIfUserExist returns true when a user with the provided id exists.
// It returns false and nil error when the user does not exist.
// For other database errors, it returns false with the error for callers to handle.
func CheckIfUserExist(db *mongodb.DB, ctx context.Context, id string) (bool, error) {
	return db.UserExists(ctx, id)
}
