package market

import (
	"errors"
	"math"
	"testing"
)

func TestFoldRatingFirstSubmission(t *testing.T) {
	avg, total := FoldRating(0, 0, 5)
	if avg != 5.0 || total != 1 {
		t.Fatalf("unexpected fold: avg=%v total=%d", avg, total)
	}
}

func TestFoldRatingSequentialIsDeterministic(t *testing.T) {
	// Two sequential rating=5 submissions on a fresh row: 5.0 after the
	// first, 5.0 after the second, total counts both.
	avg, total := FoldRating(0, 0, 5)
	avg, total = FoldRating(avg, total, 5)
	if avg != 5.0 || total != 2 {
		t.Fatalf("unexpected fold: avg=%v total=%d", avg, total)
	}

	avg, total = FoldRating(avg, total, 2)
	if total != 3 {
		t.Fatalf("unexpected total: %d", total)
	}
	if math.Abs(avg-4.0) > 1e-9 {
		t.Fatalf("unexpected avg: %v", avg)
	}
}

func TestValidateFeedback(t *testing.T) {
	if err := ValidateFeedback(&Feedback{ServiceID: "s1", Rating: 3}); err != nil {
		t.Fatalf("valid feedback rejected: %v", err)
	}
	// Zero sits inside the accepted range.
	if err := ValidateFeedback(&Feedback{ServiceID: "s1", Rating: 0}); err != nil {
		t.Fatalf("zero rating rejected: %v", err)
	}
	for _, rating := range []int{6, -1} {
		if err := ValidateFeedback(&Feedback{ServiceID: "s1", Rating: rating}); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("rating %d: expected ErrInvalidArgument, got %v", rating, err)
		}
	}
	if err := ValidateFeedback(&Feedback{Rating: 3}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing serviceId: expected ErrInvalidArgument, got %v", err)
	}
}
