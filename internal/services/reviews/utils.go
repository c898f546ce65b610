package reviews

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var (
	ErrDuplicateReview   = errors.New("user has already reviewed this community")
	ErrCommunityNotFound = errors.New("community not found")
	ErrInvalidRating     = errors.New("review rating must be between 1 and 5")
	ErrInvalidReview     = errors.New("review is missing required fields")
)

var ErrorMap = map[error]int{
	ErrDuplicateReview:   http.StatusConflict,
	ErrCommunityNotFound: http.StatusNotFound,
	ErrInvalidRating:     http.StatusBadRequest,
	ErrInvalidReview:     http.StatusBadRequest,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateSubmission(s Submission) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Rating" {
				return ErrInvalidRating
			}
		}
	}
	return ErrInvalidReview
}
