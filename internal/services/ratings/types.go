package ratings

import (
	"context"
	"time"

	"github.com/lealre/community-backend/internal/mongodb"
)

// Store is the part of the database the aggregator reads and writes.
// *mongodb.DB implements it.
type Store interface {
	GetReviewLedger(ctx context.Context, tag string) (mongodb.ReviewLedgerDb, error)
	GetReviewLedgerTags(ctx context.Context) ([]string, error)
	SetCommunityRating(ctx context.Context, tag string, rating, reviewCount int) (bool, error)
}

type Outcome string

const (
	// OutcomeUpdated means the rating was written.
	OutcomeUpdated Outcome = "updated"
	// OutcomeSkipped means the community is gone or already holds a rating
	// computed from at least as many reviews.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeMissing means the ledger no longer exists.
	OutcomeMissing Outcome = "missing"
)

type Options struct {
	Workers         int
	HandleTimeout   time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type ReconcileResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Missing int `json:"missing"`
	Failed  int `json:"failed"`
}
