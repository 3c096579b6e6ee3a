package doctrine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesDocumentedBounds(t *testing.T) {
	d := Default()

	assert.Equal(t, uint32(8), d.MaxHotPathTicks)
	assert.Equal(t, 3, d.MaxRestarts)
	assert.Equal(t, 60*time.Second, d.RestartWindow)
	assert.Equal(t, BackoffExponential, d.DefaultBackoff.Kind)
	assert.Equal(t, 100*time.Millisecond, d.DefaultBackoff.Initial)
	assert.Equal(t, 10*time.Second, d.DefaultBackoff.Max)
	assert.Equal(t, 2.0, d.DefaultBackoff.Factor)
	assert.Equal(t, 100_000, d.ReceiptLogCapacity)
	assert.Equal(t, 10_000, d.MaxQueueDepth)
	assert.Equal(t, 0.01, d.TargetViolationRate)
}
