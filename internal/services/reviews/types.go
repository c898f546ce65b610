package reviews

import "time"

type Review struct {
	ReviewerId string    `json:"reviewerId"`
	Name       string    `json:"name"`
	Rating     int       `json:"rating"`
	Feedback   string    `json:"feedback"`
	Date       time.Time `json:"date"`
}

type NewReviewRequest struct {
	Rating   int    `json:"rating" validate:"min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// Submission is a review about to be appended to a community ledger.
type Submission struct {
	Tag        string `validate:"required"`
	ReviewerId string `validate:"required"`
	Name       string
	Rating     int    `validate:"min=1,max=5"`
	Feedback   string `validate:"max=2000"`
	Date       time.Time
}

type ReviewsResponse struct {
	Tag     string   `json:"tag"`
	Reviews []Review `json:"reviews"`
}
