package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/metrics"
	"github.com/lealre/community-backend/internal/mongodb"
)

// SubmitReview appends a review to the community ledger. It never touches the
// community rating; the change feed picks the append up and the aggregator
// recomputes it.
func SubmitReview(db *mongodb.DB, ctx context.Context, s Submission) (Review, error) {
	s.Tag = strings.TrimSpace(s.Tag)
	s.Feedback = strings.TrimSpace(s.Feedback)
	if err := validateSubmission(s); err != nil {
		return Review{}, err
	}
	if s.Date.IsZero() {
		s.Date = time.Now().UTC()
	}

	review := mongodb.ReviewDb{
		ReviewerId: s.ReviewerId,
		Name:       s.Name,
		Rating:     s.Rating,
		Feedback:   s.Feedback,
		Date:       s.Date,
	}

	appended, err := db.AppendReview(ctx, s.Tag, review)
	if err != nil {
		return Review{}, fmt.Errorf("append review: %w", err)
	}

	if !appended {
		// Nothing matched: either the reviewer is already in the ledger or
		// the ledger is gone.
		exists, err := db.ReviewLedgerExists(ctx, s.Tag)
		if err != nil {
			return Review{}, fmt.Errorf("check review ledger: %w", err)
		}
		if !exists {
			metrics.ReviewsSubmitted.WithLabelValues("missing").Inc()
			return Review{}, ErrCommunityNotFound
		}
		metrics.ReviewsSubmitted.WithLabelValues("duplicate").Inc()
		return Review{}, ErrDuplicateReview
	}

	metrics.ReviewsSubmitted.WithLabelValues("appended").Inc()
	logx.FromContext(ctx).Debug().
		Str("tag", s.Tag).
		Str("reviewer_id", s.ReviewerId).
		Int("rating", s.Rating).
		Msg("review appended")

	return MapDbReviewToApiReview(review), nil
}

func ListReviews(db *mongodb.DB, ctx context.Context, tag string) (ReviewsResponse, error) {
	ledger, err := db.GetReviewLedger(ctx, tag)
	if err != nil {
		if errors.Is(err, mongodb.ErrRecordNotFound) {
			return ReviewsResponse{}, ErrCommunityNotFound
		}
		return ReviewsResponse{}, err
	}
	return MapDbLedgerToApiResponse(ledger), nil
}

// CreateLedger stores the empty ledger of a new community.
func CreateLedger(db *mongodb.DB, ctx context.Context, tag string) error {
	return db.CreateReviewLedger(ctx, tag)
}

// DeleteLedger removes the ledger of a community. Deleting the ledger stops
// change events for the community at the source.
func DeleteLedger(db *mongodb.DB, ctx context.Context, tag string) error {
	if _, err := db.DeleteReviewLedger(ctx, tag); err != nil {
		return err
	}
	return nil
}
