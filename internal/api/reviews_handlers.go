package api

import (
	"net/http"
	"time"

	"github.com/lealre/community-backend/internal/auth"
	"github.com/lealre/community-backend/internal/services/reviews"
)

// SubmitReview appends a review by the current user. The community rating is
// recomputed asynchronously from the ledger.
func (api *API) SubmitReview(w http.ResponseWriter, r *http.Request) {
	currentUser := auth.GetUserFromContext(r.Context())

	var req reviews.NewReviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	review, err := reviews.SubmitReview(api.Db, r.Context(), reviews.Submission{
		Tag:        r.PathValue("tag"),
		ReviewerId: currentUser.Id,
		Name:       currentUser.Name,
		Rating:     req.Rating,
		Feedback:   req.Feedback,
		Date:       time.Now().UTC(),
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to submit review")
		return
	}

	respondWithJSON(w, http.StatusCreated, review)
}

func (api *API) ListReviews(w http.ResponseWriter, r *http.Request) {
	resp, err := reviews.ListReviews(api.Db, r.Context(), r.PathValue("tag"))
	if err != nil {
		respondWithServiceError(w, r, err, "Database lookup failed")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
