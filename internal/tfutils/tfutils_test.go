package tfutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeframes(t *testing.T) {
	assert.Equal(t, 5*time.Minute, GetTimeframeDuration("5m"))
	assert.Equal(t, 24*time.Hour, GetTimeframeDuration("1d"))
	assert.Zero(t, GetTimeframeDuration("13m"))

	for _, tf := range GetSupportedTimeframes() {
		assert.True(t, IsValidTimeframe(tf), tf)
	}
	assert.False(t, IsValidTimeframe("2h"))
}
