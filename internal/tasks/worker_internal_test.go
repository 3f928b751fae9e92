package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffFor_DoublesUntilCap(t *testing.T) {
	assert.Equal(t, time.Second, backoffFor(0))
	assert.Equal(t, 2*time.Second, backoffFor(1))
	assert.Equal(t, 4*time.Second, backoffFor(2))
}

func TestBackoffFor_CapsAtMax(t *testing.T) {
	assert.Equal(t, 5*time.Minute, backoffFor(20))
}

func TestBackoffFor_NeverNegativeOnOverflow(t *testing.T) {
	// A large attempt count shifts the base duration past int64's range;
	// backoffFor must fall back to the cap rather than returning a
	// negative (overflowed) duration.
	assert.Equal(t, 5*time.Minute, backoffFor(100))
}
