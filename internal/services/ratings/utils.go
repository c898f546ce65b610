package ratings

import (
	"errors"
	"math"
	"net/http"

	"github.com/lealre/community-backend/internal/mongodb"
)

// ErrStorageUnavailable is returned while the breaker in front of the store
// is open or limiting trial requests.
var ErrStorageUnavailable = errors.New("rating storage is unavailable")

var ErrorMap = map[error]int{
	ErrStorageUnavailable: http.StatusServiceUnavailable,
}

// ComputeRating returns the mean of the review ratings rounded half away from
// zero. An empty ledger rates 0.
func ComputeRating(reviews []mongodb.ReviewDb) int {
	if len(reviews) == 0 {
		return 0
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return int(math.Round(float64(sum) / float64(len(reviews))))
}
