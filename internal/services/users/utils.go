package users

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidUser       = errors.New("name is required and must be at most 100 characters")
	ErrInvalidEmail      = errors.New("email is not valid")
	ErrInvalidUserId     = errors.New("user id may only contain letters, numbers, '_' and '-'")
)

var ErrorMap = map[error]int{
	ErrUserNotFound:      http.StatusNotFound,
	ErrUserAlreadyExists: http.StatusConflict,
	ErrInvalidUser:       http.StatusBadRequest,
	ErrInvalidEmail:      http.StatusBadRequest,
	ErrInvalidUserId:     http.StatusBadRequest,
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var userIdRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var validate = validator.New(validator.WithRequiredStructEnabled())

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidUserId(id string) bool {
	return userIdRegex.MatchString(id)
}
