package timing

import (
	"math"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// Provider looks up the expected duration of a test case in seconds
type Provider interface {
	Duration(id string) (float64, bool)
}

// Static is a Provider backed by a map
type Static map[string]float64

// Duration implements Provider
func (s Static) Duration(id string) (float64, bool) {
	d, ok := s[id]
	return d, ok
}

// Apply returns a copy of cases with weights taken from the provider.
// Tests the provider does not know get defaultWeight. Negative or non-finite durations
// are configuration errors.
func Apply(cases []domain.TestCase, provider Provider, defaultWeight float64) ([]domain.TestCase, error) {
	if defaultWeight < 0 || math.IsNaN(defaultWeight) {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "defaultTestTime",
			Value:   defaultWeight,
			Message: "must not be negative",
		})
	}

	weighted := make([]domain.TestCase, len(cases))
	for i, tc := range cases {
		weight := defaultWeight
		if provider != nil {
			if d, ok := provider.Duration(tc.ID); ok {
				weight = d
			}
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
				Name:    "weight",
				Value:   weight,
				Message: "duration of " + tc.ID + " must be a finite non-negative number",
			})
		}
		tc.Weight = weight
		weighted[i] = tc
	}
	return weighted, nil
}
