package market

import (
	"errors"
	"testing"
)

func TestValidateRating(t *testing.T) {
	for _, score := range []int{0, 3, 5} {
		if err := ValidateRating(&Rating{ServiceID: "s1", Score: score}); err != nil {
			t.Fatalf("score %d: valid rating rejected: %v", score, err)
		}
	}
	for _, score := range []int{-1, 6} {
		if err := ValidateRating(&Rating{ServiceID: "s1", Score: score}); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("score %d: expected ErrInvalidArgument, got %v", score, err)
		}
	}
	if err := ValidateRating(&Rating{Score: 3}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing serviceId: expected ErrInvalidArgument, got %v", err)
	}
}
