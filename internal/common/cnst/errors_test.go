package cnst

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrNotFound, ErrConflict, ErrInvalidInterval, ErrUpstreamUnavailable, ErrInvalidConfigDocument}
	for i, a := range errs {
		for j, b := range errs {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b))
		}
	}
}

func TestSentinelErrorsWrap(t *testing.T) {
	wrapped := fmt.Errorf("lookup tenant: %w", ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}
