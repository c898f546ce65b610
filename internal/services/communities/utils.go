package communities

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	ErrCommunityNotFound = errors.New("community not found")
	ErrCommunityExists   = errors.New("a community with this tag already exists")
	ErrInvalidCommunity  = errors.New("community tag and name are required")
	ErrInvalidTag        = errors.New("community tag may only contain letters, numbers, '_' and '-'")
	ErrNotCommunityAdmin = errors.New("only the community admin can do this")
	ErrUnknownUser       = errors.New("user does not exist")
	ErrAlreadyMember     = errors.New("user is already a member of this community")

	ErrJoinRequestExists   = errors.New("a join request for this community is already pending")
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrInvalidJoinRequest  = errors.New("join request message is too long")
)

var ErrorMap = map[error]int{
	ErrCommunityNotFound: http.StatusNotFound,
	ErrCommunityExists:   http.StatusConflict,
	ErrInvalidCommunity:  http.StatusBadRequest,
	ErrInvalidTag:        http.StatusBadRequest,
	ErrNotCommunityAdmin: http.StatusForbidden,
	ErrUnknownUser:       http.StatusNotFound,
	ErrAlreadyMember:     http.StatusConflict,

	ErrJoinRequestExists:   http.StatusConflict,
	ErrJoinRequestNotFound: http.StatusNotFound,
	ErrInvalidJoinRequest:  http.StatusBadRequest,
}

const (
	DefaultTopLimit = 3
	MaxTopLimit     = 50
)

var tagRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var validate = validator.New(validator.WithRequiredStructEnabled())

func IsValidTag(tag string) bool {
	return tagRegex.MatchString(tag)
}
