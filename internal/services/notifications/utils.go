package notifications

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/lealre/community-backend/internal/services/communities"
)

var (
	ErrUnknownUser          = communities.ErrUnknownUser
	ErrAlreadyMember        = communities.ErrAlreadyMember
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvitationNotFound   = errors.New("pending invitation not found")
	ErrCommunityNotFound    = communities.ErrCommunityNotFound
	ErrInvalidNotification  = errors.New("notification is invalid")
)

var ErrorMap = map[error]int{
	ErrUnknownUser:          http.StatusNotFound,
	ErrAlreadyMember:        http.StatusConflict,
	ErrNotificationNotFound: http.StatusNotFound,
	ErrInvitationNotFound:   http.StatusNotFound,
	ErrCommunityNotFound:    http.StatusNotFound,
	ErrInvalidNotification:  http.StatusBadRequest,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", ErrInvalidNotification, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return nil
}

// InvitationText is the title and body of an invitation to comName.
func InvitationText(senderName, comName string) (title, body string) {
	if senderName == "" {
		senderName = "Someone"
	}
	return "Community invitation", fmt.Sprintf("%s invited you to join %s", senderName, comName)
}
