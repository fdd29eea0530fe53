package send

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDelayEmpty(t *testing.T) {
	d, err := parseDelay("")
	assert.NoError(t, err)
	assert.Zero(t, d)
}

func TestParseDelaySeconds(t *testing.T) {
	d, err := parseDelay("3s")
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)
}

func TestParseDelayMilliseconds(t *testing.T) {
	d, err := parseDelay("250ms")
	assert.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestParseDelayRejectsOtherUnits(t *testing.T) {
	_, err := parseDelay("1m")
	assert.Error(t, err)
	_, err = parseDelay("1h")
	assert.Error(t, err)
}
