package discovery

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

var filterIDs = []string{
	"com.example.login.LoginTest#testLogin",
	"com.example.login.LoginTest#testLogout",
	"com.example.pay.PaymentTest#testCharge",
	"com.example.pay.PaymentServiceTest#testRefund",
	"com.other.OrderTest#testOrder",
}

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected []string
	}{
		{
			name:     "empty expression returns all",
			expr:     "",
			expected: filterIDs,
		},
		{
			name:     "wildcard on full id",
			expr:     "*#testLog*",
			expected: filterIDs[:2],
		},
		{
			name:     "wildcard substring",
			expr:     "*Payment*",
			expected: filterIDs[2:4],
		},
		{
			name:     "simple contains match",
			expr:     "OrderTest",
			expected: filterIDs[4:],
		},
		{
			name:     "class term matches simple name",
			expr:     "class:PaymentTest",
			expected: filterIDs[2:3],
		},
		{
			name:     "package term matches prefix",
			expr:     "package:com.example",
			expected: filterIDs[:4],
		},
		{
			name:     "package term does not match partial segment",
			expr:     "package:com.exam",
			expected: nil,
		},
		{
			name:     "exclusion only",
			expr:     "!class:LoginTest",
			expected: filterIDs[2:],
		},
		{
			name:     "include and exclude",
			expr:     "package:com.example, !*testRefund",
			expected: filterIDs[:3],
		},
		{
			name:     "no matches",
			expr:     "*NonExistent*",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			require.NoError(t, err)
			var matched []string
			for _, id := range filterIDs {
				if f.Match(id) {
					matched = append(matched, id)
				}
			}
			assert.Equal(t, tt.expected, matched)
		})
	}
}

func TestFilter_Split(t *testing.T) {
	f, err := CompileFilter("!class:OrderTest")
	require.NoError(t, err)

	cases := []domain.TestCase{{ID: filterIDs[4]}, {ID: filterIDs[0]}, {ID: filterIDs[1]}}
	eligible, filtered := f.Split(cases)
	assert.Equal(t, []domain.TestCase{{ID: filterIDs[0]}, {ID: filterIDs[1]}}, eligible)
	assert.Equal(t, []domain.TestCase{{ID: filterIDs[4]}}, filtered)
}

func TestCompileFilter_Invalid(t *testing.T) {
	for _, expr := range []string{"[abc", "class:", "!"} {
		t.Run(expr, func(t *testing.T) {
			_, err := CompileFilter(expr)
			var invalid *runerrors.ErrInvalidArgument
			assert.True(t, errors.As(err, &invalid), "expected ErrInvalidArgument, got %v", err)
		})
	}
}
