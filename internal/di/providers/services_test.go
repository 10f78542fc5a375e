package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveBudget(t *testing.T) {
	assert.Equal(t, 22500*time.Millisecond, resolveBudget(30*time.Second))
	assert.Less(t, resolveBudget(10*time.Second), 10*time.Second)
	assert.Zero(t, resolveBudget(0))
}
