package reviews

import "github.com/lealre/community-backend/internal/mongodb"

func MapDbReviewToApiReview(review mongodb.ReviewDb) Review {
	return Review{
		ReviewerId: review.ReviewerId,
		Name:       review.Name,
		Rating:     review.Rating,
		Feedback:   review.Feedback,
		Date:       review.Date,
	}
}

func MapDbLedgerToApiResponse(ledger mongodb.ReviewLedgerDb) ReviewsResponse {
	resp := ReviewsResponse{
		Tag:     ledger.Tag,
		Reviews: make([]Review, 0, len(ledger.Reviews)),
	}
	for _, r := range ledger.Reviews {
		resp.Reviews = append(resp.Reviews, MapDbReviewToApiReview(r))
	}
	return resp
}
