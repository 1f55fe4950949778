package market

import "fmt"

// ValidateFeedback checks the rating bounds before anything is persisted.
func ValidateFeedback(f *Feedback) error {
	if f.Rating < 0 || f.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidArgument)
	}
	if f.ServiceID == "" {
		return fmt.Errorf("%w: serviceId is required", ErrInvalidArgument)
	}
	return nil
}

// FoldRating folds one new rating into a running average. Stores perform
// this as a read-modify-write without locking, so concurrent submissions
// for the same row can under-count; sequential execution is deterministic
// and pinned by tests.
func FoldRating(avg float64, total int64, rating int) (float64, int64) {
	newTotal := total + 1
	newAvg := (avg*float64(total) + float64(rating)) / float64(newTotal)
	return newAvg, newTotal
}
